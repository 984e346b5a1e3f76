package config

import (
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

const processorsPlaceholder = "%{processors}"

var concurrencyExpr = regexp.MustCompile(`^\s*(\d+)\s*([-+*/])\s*(\d+)\s*$`)

// Concurrency resolves the concurrency budget. The value is an integer or a
// string in which %{processors} stands for the CPU count, optionally combined
// with one arithmetic operation against an integer ("%{processors} * 2").
// The result is at least 1 and computed once.
func (c *Config) Concurrency() (int, error) {
	c.concurrencyOnce.Do(func() {
		c.concurrency, c.concurrencyErr = resolveConcurrency(c.tree[keyConcurrency], runtime.NumCPU())
	})
	return c.concurrency, c.concurrencyErr
}

func resolveConcurrency(raw any, processors int) (int, error) {
	n := 0
	switch v := raw.(type) {
	case nil:
		n = processors
	case int:
		n = v
	case int64:
		n = int(v)
	case uint64:
		n = int(v)
	case float64:
		n = int(v)
	case string:
		expr := strings.ReplaceAll(v, processorsPlaceholder, strconv.Itoa(processors))
		if m := concurrencyExpr.FindStringSubmatch(expr); m != nil {
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[3])
			switch m[2] {
			case "+":
				n = a + b
			case "-":
				n = a - b
			case "*":
				n = a * b
			case "/":
				if b == 0 {
					return 0, fmt.Errorf("invalid concurrency %q: division by zero", v)
				}
				n = a / b
			}
			break
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(expr))
		if err != nil {
			return 0, fmt.Errorf("invalid concurrency %q", v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("invalid concurrency %v", raw)
	}
	return max(n, 1), nil
}
