// Package ini implements the INI/settings <-> si.Info codec referenced by
// §4.7: only the SerializationInfo contract is in scope, not a general
// INI file manipulation API, so this package exposes exactly Decode and
// Encode.
package ini

import (
	"bytes"
	"fmt"

	gopkgini "gopkg.in/ini.v1"

	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

// ErrDuplicateKey is returned by Decode when a section repeats a key,
// which the settings format (unlike Object's permissive duplicate-member
// policy) treats as an error per the Open Question decision recorded in
// DESIGN.md.
type ErrDuplicateKey struct {
	Section, Key string
}

func (e *ErrDuplicateKey) Error() string {
	return fmt.Sprintf("ini: duplicate key %q in section %q", e.Key, e.Section)
}

// Decode parses raw INI text into an Object si.Info: one member per
// section (the nameless default section's keys are hoisted to the root),
// each section itself an Object of string-valued members.
func Decode(raw []byte) (*si.Info, error) {
	// AllowShadows surfaces repeated keys (instead of silently keeping only
	// the last value) so the duplicate-key check below can see them.
	file, err := gopkgini.LoadSources(gopkgini.LoadOptions{AllowShadows: true}, raw)
	if err != nil {
		return nil, fmt.Errorf("ini: parse: %w", err)
	}

	root := si.New()
	root.SetObject()
	root.SetTypeName("settings")

	for _, section := range file.Sections() {
		target := root
		if section.Name() != gopkgini.DefaultSection {
			target = root.AddMember(section.Name())
			target.SetObject()
		}
		for _, key := range section.Keys() {
			if len(key.ValueWithShadows()) > 1 {
				return nil, &ErrDuplicateKey{Section: section.Name(), Key: key.Name()}
			}
			target.AddMember(key.Name()).SetString(key.Value())
		}
	}
	return root, nil
}

// Encode renders an Object si.Info back to INI text. Scalar members of
// the root become default-section keys; Object members become named
// sections whose own members become that section's keys.
func Encode(root *si.Info) ([]byte, error) {
	if root.Category() != si.Object {
		return nil, fmt.Errorf("ini: Encode requires an Object node, got %v", root.Category())
	}
	file := gopkgini.Empty()
	for _, member := range root.Children() {
		if member.Category() == si.Object {
			section, err := file.NewSection(member.Name())
			if err != nil {
				return nil, err
			}
			for _, kv := range member.Children() {
				s, err := kv.AsString()
				if err != nil {
					return nil, fmt.Errorf("ini: section %s key %s: %w", member.Name(), kv.Name(), err)
				}
				section.NewKey(kv.Name(), s)
			}
			continue
		}
		s, err := member.AsString()
		if err != nil {
			return nil, fmt.Errorf("ini: key %s: %w", member.Name(), err)
		}
		file.Section(gopkgini.DefaultSection).NewKey(member.Name(), s)
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
