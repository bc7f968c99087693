package dict

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// GetInt returns the value of key parsed as an integer, or def when the key
// is absent or not an integer.
func (d *Dict) GetInt(key string, def int) int {
	i := d.Find(key)
	if i == -1 {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(d.pairs[i].value.Text()))
	if err != nil {
		return def
	}
	return n
}

// GetFloat returns the value of key parsed as a float, or def.
func (d *Dict) GetFloat(key string, def float64) float64 {
	i := d.Find(key)
	if i == -1 {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(d.pairs[i].value.Text()), 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool returns the value of key as a boolean, or def. Besides the forms
// accepted by strconv.ParseBool, "yes"/"no" and "on"/"off" are recognized.
func (d *Dict) GetBool(key string, def bool) bool {
	i := d.Find(key)
	if i == -1 {
		return def
	}
	switch v := strings.ToLower(strings.TrimSpace(d.pairs[i].value.Text())); v {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	default:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
}

// GetDecimal returns the value of key as an exact decimal, or def. Use it for
// values that must not pick up binary floating-point error, such as prices
// or rates.
func (d *Dict) GetDecimal(key string, def decimal.Decimal) decimal.Decimal {
	i := d.Find(key)
	if i == -1 {
		return def
	}
	v, err := decimal.NewFromString(strings.TrimSpace(d.pairs[i].value.Text()))
	if err != nil {
		return def
	}
	return v
}
