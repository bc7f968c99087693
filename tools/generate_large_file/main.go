// Large Declaration File Generator
//
// This tool generates a large declaration file for performance testing and
// profiling. It writes realistic weapon, monster and item declarations with
// inheritance chains, quoted values and comments to stress-test the parser,
// inheritance resolution and the binary cache.
//
// Usage:
//
//	go run main.go > large.decl
//	go run main.go 20000000 > large.decl  # Specify target size in bytes
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

const (
	defaultTargetSize = 10 * 1024 * 1024 // 10MB
)

var (
	types = []string{"weapon", "monster", "item", "sound", "material"}

	keys = map[string][]string{
		"weapon":   {"damage", "ammo", "clip", "fire_rate", "spread", "model", "sound_fire", "icon"},
		"monster":  {"health", "speed", "armor", "model", "sound_pain", "sound_death", "attack"},
		"item":     {"weight", "value", "model", "icon", "stack", "description"},
		"sound":    {"file", "volume", "pitch", "looping", "radius"},
		"material": {"diffuse", "normal", "specular", "blend", "shader"},
	}

	words = []string{
		"iron", "plasma", "shadow", "rusty", "heavy", "silent", "burning",
		"frozen", "ancient", "broken", "golden", "toxic", "swift", "dark",
	}

	nouns = []string{
		"pistol", "rifle", "blade", "imp", "demon", "crate", "potion",
		"door", "wall", "floor", "gauntlet", "orb", "shard", "lantern",
	}
)

func main() {
	targetSize := defaultTargetSize
	if len(os.Args) > 1 {
		if size, err := strconv.Atoi(os.Args[1]); err == nil {
			targetSize = size
		}
	}

	w := bufio.NewWriter(os.Stdout)
	defer func() { _ = w.Flush() }()

	header := "// Generated declaration file for performance testing\n\n"
	_, _ = w.WriteString(header)
	bytesWritten := len(header)

	// Names declared so far per type, so inheritance targets exist.
	declared := make(map[string][]string)
	declCount := 0

	for bytesWritten < targetSize {
		typ := types[rand.Intn(len(types))]
		name := fmt.Sprintf("%s_%s_%d", words[rand.Intn(len(words))], nouns[rand.Intn(len(nouns))], declCount)

		output := generateDecl(typ, name, declared[typ])
		_, _ = w.WriteString(output)
		bytesWritten += len(output)

		declared[typ] = append(declared[typ], name)
		declCount++
	}

	fmt.Fprintf(os.Stderr, "Generated %d declarations (%d bytes)\n", declCount, bytesWritten)
}

func generateDecl(typ, name string, parents []string) string {
	var b strings.Builder

	if rand.Intn(8) == 0 {
		fmt.Fprintf(&b, "// %s %s\n", typ, strings.ReplaceAll(name, "_", " "))
	}
	fmt.Fprintf(&b, "%s %s {\n", typ, name)

	// About a third of the declarations inherit, some from two parents.
	if len(parents) > 0 && rand.Intn(3) == 0 {
		fmt.Fprintf(&b, "\tinherit = %s\n", parents[rand.Intn(len(parents))])
		if rand.Intn(4) == 0 {
			fmt.Fprintf(&b, "\tinherit2 = %s\n", parents[rand.Intn(len(parents))])
		}
	}

	for _, key := range keys[typ] {
		if rand.Intn(3) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\t%s = %s;\n", key, generateValue(key))
	}

	b.WriteString("}\n\n")
	return b.String()
}

func generateValue(key string) string {
	switch key {
	case "model", "icon", "file", "diffuse", "normal", "specular", "shader":
		return fmt.Sprintf("%q", fmt.Sprintf("assets/%s/%s_%d.dat", key, nouns[rand.Intn(len(nouns))], rand.Intn(100)))
	case "description":
		return fmt.Sprintf("%q", fmt.Sprintf("A %s %s", words[rand.Intn(len(words))], nouns[rand.Intn(len(nouns))]))
	case "looping":
		return strconv.FormatBool(rand.Intn(2) == 0)
	case "volume", "pitch", "spread", "fire_rate", "speed":
		return strconv.FormatFloat(rand.Float64()*10, 'f', 2, 64)
	default:
		return strconv.Itoa(rand.Intn(500))
	}
}
