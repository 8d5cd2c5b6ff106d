package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// uint64Value is a pflag.Value for seeds and op counts. It accepts the
// 0x, 0o and 0b prefixes as well as plain decimal.
type uint64Value struct {
	p   *uint64
	hex bool
}

var _ pflag.Value = (*uint64Value)(nil)

func newUint64Value(def uint64, p *uint64, hex bool) *uint64Value {
	*p = def
	return &uint64Value{p: p, hex: hex}
}

func (v *uint64Value) Set(s string) error {
	n, err := parseUint64(s)
	if err != nil {
		return err
	}
	*v.p = n
	return nil
}

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	if v.hex {
		return fmt.Sprintf("%#x", *v.p)
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Type() string {
	return "uint64"
}

func parseUint64(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid unsigned integer %q", s)
	}
	return n, nil
}
