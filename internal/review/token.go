package review

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Action string

const (
	ActionAccept Action = "yes"
	ActionReject Action = "no"
)

var ErrUnknownToken = errors.New("unknown callback token")

// Token is the callback payload bound to a response button, e.g. "yes_12".
func Token(action Action, id int64) string {
	return fmt.Sprintf("%s_%d", action, id)
}

func ParseToken(data string) (Action, int64, error) {
	prefix, rawID, ok := strings.Cut(data, "_")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownToken, data)
	}

	action := Action(prefix)
	if action != ActionAccept && action != ActionReject {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownToken, data)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid id in %q", ErrUnknownToken, data)
	}
	return action, id, nil
}
