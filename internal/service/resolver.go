package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

// Words dropped from free text before it is used as a name hint.
var fillerWords = map[string]bool{
	"turn": true, "switch": true, "on": true, "off": true, "toggle": true,
	"flip": true, "status": true, "state": true, "check": true, "of": true,
	"the": true, "a": true, "an": true, "please": true, "is": true,
	"what": true, "whats": true, "are": true, "in": true, "set": true,
	"power": true, "activate": true, "deactivate": true, "enable": true,
	"disable": true, "start": true, "stop": true, "s": true,
}

// Explicit action phrases. When one is present it decides the action and
// single keywords are ignored.
var actionPhrases = []struct {
	action model.Action
	words  []string
}{
	{model.ActionOn, []string{"turn", "on"}},
	{model.ActionOn, []string{"switch", "on"}},
	{model.ActionOn, []string{"power", "on"}},
	{model.ActionOff, []string{"turn", "off"}},
	{model.ActionOff, []string{"switch", "off"}},
	{model.ActionOff, []string{"power", "off"}},
	{model.ActionToggle, []string{"toggle"}},
	{model.ActionToggle, []string{"flip"}},
}

// Keyword groups in inference priority order, used only when no phrase
// matched. Status comes first so a question like "is the fan on" never
// mutates anything.
var actionKeywords = []struct {
	action model.Action
	words  []string
}{
	{model.ActionStatus, []string{"status", "state", "check", "is", "are", "what", "whats"}},
	{model.ActionOff, []string{"off", "deactivate", "disable", "stop"}},
	{model.ActionOn, []string{"on", "activate", "enable", "start"}},
}

var questionWords = map[string]bool{
	"is": true, "are": true, "what": true, "whats": true,
}

// Words that never name anything, dropped from the first, narrower hint.
var grammarWords = map[string]bool{
	"the": true, "a": true, "an": true, "please": true, "of": true, "s": true,
	"that": true, "in": true,
}

// Resolver turns a canonical command into a concrete device, switch and
// action. It never guesses between equally good candidates.
type Resolver struct {
	inventory DeviceInventory
}

func NewResolver(inventory DeviceInventory) *Resolver {
	return &Resolver{inventory: inventory}
}

func (r *Resolver) Resolve(ctx context.Context, cmd model.Command, scope model.AccessScope) (*model.Resolution, error) {
	device, err := r.resolveDevice(ctx, cmd, scope)
	if err != nil {
		return nil, err
	}

	sw, err := resolveSwitch(device, cmd)
	if err != nil {
		return nil, err
	}

	action := cmd.RequestedAction
	if action == "" {
		action = InferAction(cmd.RawText, device.Name, sw.Name)
	}
	if action == "" {
		return nil, apperrors.ActionUnsupported("", string(sw.Type))
	}

	return &model.Resolution{Device: device, Switch: sw, Action: action}, nil
}

func (r *Resolver) resolveDevice(ctx context.Context, cmd model.Command, scope model.AccessScope) (*model.Device, error) {
	if cmd.DeviceID != "" {
		device, err := r.inventory.FindByID(ctx, cmd.DeviceID, scope)
		if err != nil {
			return nil, fmt.Errorf("find device: %w", err)
		}
		if device == nil {
			return nil, apperrors.DeviceNotFound(cmd.DeviceID)
		}
		return device, nil
	}

	hints := []string{strings.TrimSpace(cmd.DeviceNameHint)}
	if hints[0] == "" {
		hints = candidateHints(cmd.RawText)
	}
	if len(hints) == 0 {
		return nil, apperrors.DeviceNotFound(cmd.RawText)
	}

	devices, err := r.inventory.FindAccessible(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	names := make([]string, len(devices))
	for i := range devices {
		names[i] = devices[i].Name
	}

	hint, matches := matchFirst(hints, names)
	switch len(matches) {
	case 0:
		return nil, apperrors.DeviceNotFound(hint)
	case 1:
		return &devices[matches[0]], nil
	default:
		return nil, apperrors.AmbiguousDevice(hint, candidateNames(names, matches))
	}
}

func resolveSwitch(device *model.Device, cmd model.Command) (*model.Switch, error) {
	if cmd.SwitchID != "" {
		sw := device.FindSwitch(cmd.SwitchID)
		if sw == nil {
			return nil, apperrors.SwitchNotFound(cmd.SwitchID, device.Name)
		}
		return sw, nil
	}

	names := make([]string, len(device.Switches))
	for i := range device.Switches {
		names[i] = device.Switches[i].Name
	}

	hints := []string{strings.TrimSpace(cmd.SwitchNameHint)}
	// A hint taken from free text is only a suggestion: when it names no
	// switch the command is treated as if no switch was given.
	soft := false
	if hints[0] == "" {
		hints = candidateHints(cmd.RawText)
		soft = true
	}

	if len(hints) > 0 {
		hint, matches := matchFirst(hints, names)
		switch {
		case len(matches) == 1:
			return &device.Switches[matches[0]], nil
		case len(matches) > 1:
			return nil, apperrors.AmbiguousSwitch(device.Name, candidateNames(names, matches))
		case !soft:
			return nil, apperrors.SwitchNotFound(hint, device.Name)
		}
	}

	switch len(device.Switches) {
	case 0:
		return nil, apperrors.SwitchNotFound("", device.Name)
	case 1:
		return &device.Switches[0], nil
	default:
		all := make([]int, len(names))
		for i := range all {
			all[i] = i
		}
		return nil, apperrors.AmbiguousSwitch(device.Name, candidateNames(names, all))
	}
}

func candidateNames(names []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = names[j]
	}
	sort.Strings(out)
	return out
}

// matchFirst tries hints in order and stops at the first one that matches
// anything. The last hint is reported when none match.
func matchFirst(hints, names []string) (string, []int) {
	for _, h := range hints {
		if matches := MatchNames(h, names); len(matches) > 0 {
			return h, matches
		}
	}
	return hints[len(hints)-1], nil
}

// candidateHints returns the name hints for free text, narrowest first:
// the text without its action phrase and grammar words, then DeriveHint.
// The first keeps words like "stop" or "status" that can be part of a name.
func candidateHints(raw string) []string {
	words := strings.Fields(normalizeName(raw))
	if _, at, n := findPhrase(words, nil); n > 0 {
		words = append(append([]string(nil), words[:at]...), words[at+n:]...)
	}
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !grammarWords[w] {
			kept = append(kept, w)
		}
	}

	var hints []string
	if narrow := strings.Join(kept, " "); narrow != "" {
		hints = append(hints, narrow)
	}
	if wide := DeriveHint(raw); wide != "" && (len(hints) == 0 || wide != hints[0]) {
		hints = append(hints, wide)
	}
	return hints
}

// DeriveHint strips action and filler words from free text, leaving the
// words that can name a device or switch.
func DeriveHint(raw string) string {
	words := strings.Fields(normalizeName(raw))
	kept := words[:0]
	for _, w := range words {
		if !fillerWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// findPhrase returns the action of the earliest explicit phrase in words,
// its position and its length. n is 0 when there is none. Single-word
// phrases found in skip do not count.
func findPhrase(words []string, skip map[string]bool) (action model.Action, at, n int) {
	for i := range words {
		for _, p := range actionPhrases {
			if i+len(p.words) > len(words) {
				continue
			}
			if len(p.words) == 1 && skip[p.words[0]] {
				continue
			}
			hit := true
			for j, w := range p.words {
				if words[i+j] != w {
					hit = false
					break
				}
			}
			if hit {
				return p.action, i, len(p.words)
			}
		}
	}
	return "", 0, 0
}

// InferAction picks the action named in free text, or "" when none is
// present. A leading question word makes it a status read. Otherwise an
// explicit phrase ("turn on", "switch off", "toggle") decides on its own,
// and only then are single keywords used. Words that belong to one of names
// never select an action, so "Stop Light" or "Status Board" stay names.
func InferAction(raw string, names ...string) model.Action {
	words := strings.Fields(normalizeName(raw))
	if len(words) > 0 && questionWords[words[0]] {
		return model.ActionStatus
	}

	named := make(map[string]bool)
	for _, name := range names {
		for _, w := range strings.Fields(normalizeName(name)) {
			named[w] = true
		}
	}

	if action, _, n := findPhrase(words, named); n > 0 {
		return action
	}
	present := make(map[string]bool, len(words))
	for _, w := range words {
		if !named[w] {
			present[w] = true
		}
	}

	for _, group := range actionKeywords {
		for _, w := range group.words {
			if present[w] {
				return group.action
			}
		}
	}
	return ""
}
