package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/tally/internal/model"
)

// parseTarget reads a --target flag. With an explicit kind the value is
// parsed as that kind; otherwise the kind is inferred: true/false, a
// number, an HH:MM clock, or text. An empty target is the bool default.
func parseTarget(raw, kind string) (model.Value, error) {
	raw = strings.TrimSpace(raw)
	if kind != "" {
		k, err := model.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		if raw == "" && k == model.KindBool {
			return nil, nil
		}
		return model.ParseValue(k, raw)
	}
	if raw == "" {
		return nil, nil
	}

	switch strings.ToLower(raw) {
	case "true":
		return model.Bool(true), nil
	case "false":
		return model.Bool(false), nil
	}
	if n, err := model.ParseNumber(raw); err == nil {
		return n, nil
	}
	return model.InferText(raw), nil
}

// optionalDate parses a date flag; empty means unset.
func optionalDate(name, raw string) (*model.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &d, nil
}

// dateRange parses --from/--to, defaulting both ends to fallback.
func dateRange(from, to string, fallback model.Date) (model.Date, model.Date, error) {
	start, end := fallback, fallback
	if d, err := optionalDate("from", from); err != nil {
		return 0, 0, err
	} else if d != nil {
		start = *d
		if to == "" {
			end = start
		}
	}
	if d, err := optionalDate("to", to); err != nil {
		return 0, 0, err
	} else if d != nil {
		end = *d
	}
	if end < start {
		return 0, 0, fmt.Errorf("--to %s is before --from %s", end, start)
	}
	return start, end, nil
}

// period renders a validity interval.
func period(from, to model.Date) string {
	if to.IsOpenEnded() {
		return "from " + from.String()
	}
	return fmt.Sprintf("%s to %s", from, to)
}
