package action

import (
	"fmt"
	"regexp"
	"strconv"
)

// Action identifies a single command the robot understands.
type Action string

// The closed action vocabulary.
const (
	MoveForward  Action = "move-forward"
	MoveBackward Action = "move-backward"
	TurnLeft     Action = "turn-left"
	TurnRight    Action = "turn-right"
	Wait         Action = "wait"
	Cleaning     Action = "cleaning"
	Patrol       Action = "patrol"
	Charging     Action = "charging"
	Custom       Action = "custom"
)

// ParamRule states whether an action takes a parameter.
type ParamRule string

const (
	ParamNone     ParamRule = "none"
	ParamOptional ParamRule = "optional"
	ParamRequired ParamRule = "required"
)

// Parameter bounds.
const (
	minSpeed          = 1
	maxSpeed          = 100
	minAngle          = 1
	maxAngle          = 360
	maxCustomNameLen  = 50
	customNamePattern = `^[a-z0-9][a-z0-9_-]*$`
)

var customNameRegex = regexp.MustCompile(customNamePattern)

// Definition describes one catalog entry.
type Definition struct {
	Action    Action    `json:"action"`
	Label     string    `json:"label"`
	Param     ParamRule `json:"param"`
	ParamName string    `json:"param_name,omitempty"`
	ParamHint string    `json:"param_hint,omitempty"`

	check func(string) error
}

var definitions = []Definition{
	{Action: MoveForward, Label: "Move Forward", Param: ParamOptional, ParamName: "speed", ParamHint: "1-100 percent", check: intRange("speed", minSpeed, maxSpeed)},
	{Action: MoveBackward, Label: "Move Backward", Param: ParamOptional, ParamName: "speed", ParamHint: "1-100 percent", check: intRange("speed", minSpeed, maxSpeed)},
	{Action: TurnLeft, Label: "Turn Left", Param: ParamOptional, ParamName: "angle", ParamHint: "1-360 degrees", check: intRange("angle", minAngle, maxAngle)},
	{Action: TurnRight, Label: "Turn Right", Param: ParamOptional, ParamName: "angle", ParamHint: "1-360 degrees", check: intRange("angle", minAngle, maxAngle)},
	{Action: Wait, Label: "Wait", Param: ParamNone},
	{Action: Cleaning, Label: "Cleaning Routine", Param: ParamNone},
	{Action: Patrol, Label: "Patrol Mode", Param: ParamNone},
	{Action: Charging, Label: "Return to Charge", Param: ParamNone},
	{Action: Custom, Label: "Custom Command", Param: ParamRequired, ParamName: "name", ParamHint: "lowercase a-z, 0-9, - and _", check: customName},
}

// Pre-computed lookup for O(1) membership checks.
var byAction map[Action]*Definition

func init() {
	byAction = make(map[Action]*Definition, len(definitions))
	for i := range definitions {
		byAction[definitions[i].Action] = &definitions[i]
	}
}

// All returns the catalog in display order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for a, if it is in the catalog.
func Lookup(a Action) (Definition, bool) {
	d, ok := byAction[a]
	if !ok {
		return Definition{}, false
	}
	return *d, true
}

// Label returns the display label, or the raw identifier for unknown actions.
func (a Action) Label() string {
	if d, ok := byAction[a]; ok {
		return d.Label
	}
	return string(a)
}

// Valid reports whether a is in the catalog.
func (a Action) Valid() bool {
	_, ok := byAction[a]
	return ok
}

// Parse converts a raw identifier into a catalog Action.
func Parse(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	return a, nil
}

// Validate checks membership and parameter shape. It has no side effects.
func Validate(a Action, param string) error {
	d, ok := byAction[a]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidAction, a)
	}

	switch d.Param {
	case ParamNone:
		if param != "" {
			return fmt.Errorf("%w: %s takes no parameter", ErrInvalidParam, a)
		}
		return nil
	case ParamRequired:
		if param == "" {
			return fmt.Errorf("%w: %s requires %s", ErrInvalidParam, a, d.ParamName)
		}
	case ParamOptional:
		if param == "" {
			return nil
		}
	}
	return d.check(param)
}

func intRange(name string, lo, hi int) func(string) error {
	return func(param string) error {
		n, err := strconv.Atoi(param)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", ErrInvalidParam, name)
		}
		if n < lo || n > hi {
			return fmt.Errorf("%w: %s must be %d-%d", ErrInvalidParam, name, lo, hi)
		}
		return nil
	}
}

func customName(param string) error {
	if len(param) > maxCustomNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidParam, maxCustomNameLen)
	}
	if !customNameRegex.MatchString(param) {
		return fmt.Errorf("%w: name must be lowercase alphanumeric with - or _", ErrInvalidParam)
	}
	return nil
}
