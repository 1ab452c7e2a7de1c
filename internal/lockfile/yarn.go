// Package lockfile reads Yarn v1 (classic) yarn.lock files.
package lockfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Entry is one resolved package block. Several descriptors
// ("express@^4.18.0", "express@^4.x") may share the same Entry.
type Entry struct {
	Version              string            `json:"version,omitempty"`
	Resolved             string            `json:"resolved,omitempty"`
	Integrity            string            `json:"integrity,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`

	// Other holds any remaining scalar fields of the block.
	Other map[string]string `json:"other,omitempty"`
}

// Lockfile is a parsed yarn.lock.
type Lockfile struct {
	// Keys lists every descriptor in file order.
	Keys []string

	// Entries maps each descriptor to its block.
	Entries map[string]*Entry
}

// ParseYarnLock parses a Yarn v1 lockfile. Comment lines are ignored; a
// blank line or an unindented descriptor line ends the current block.
func ParseYarnLock(r io.Reader) (*Lockfile, error) {
	lf := &Lockfile{Entries: make(map[string]*Entry)}

	var (
		keys    []string
		current *Entry
		section string
	)

	flush := func() {
		if current != nil {
			for _, k := range keys {
				if _, seen := lf.Entries[k]; !seen {
					lf.Keys = append(lf.Keys, k)
				}
				lf.Entries[k] = current
			}
		}
		keys, current, section = nil, nil, ""
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		// Descriptor line: "express@^4.18.0", "express@^4.x":
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			flush()
			header := strings.TrimSuffix(strings.TrimSpace(line), ":")
			for _, k := range strings.Split(header, ",") {
				keys = append(keys, cleanKey(strings.TrimSpace(k)))
			}
			current = &Entry{}
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("parse yarn.lock: indented line outside a package block: %q", line)
		}

		trimmed := strings.TrimLeft(line, " \t")
		indent := len(line) - len(trimmed)

		if strings.HasSuffix(trimmed, ":") {
			section = strings.TrimSuffix(trimmed, ":")
			continue
		}

		name, value := splitField(trimmed)
		if indent >= 4 && (section == "dependencies" || section == "optionalDependencies") {
			name = strings.Trim(name, `"`)
			if section == "dependencies" {
				if current.Dependencies == nil {
					current.Dependencies = make(map[string]string)
				}
				current.Dependencies[name] = value
			} else {
				if current.OptionalDependencies == nil {
					current.OptionalDependencies = make(map[string]string)
				}
				current.OptionalDependencies[name] = value
			}
			continue
		}

		section = ""
		switch name {
		case "version":
			current.Version = value
		case "resolved":
			current.Resolved = value
		case "integrity":
			current.Integrity = value
		default:
			if current.Other == nil {
				current.Other = make(map[string]string)
			}
			current.Other[name] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read yarn.lock: %w", err)
	}
	flush()
	return lf, nil
}

// Simplify reduces a lockfile to package name -> resolved version. When a
// package resolves to several versions the last block in the file wins.
// Scoped packages keep their leading "@" (e.g. "@babel/core").
func Simplify(lf *Lockfile) map[string]string {
	out := make(map[string]string)
	if lf == nil {
		return out
	}
	for _, k := range lf.Keys {
		name := PackageName(k)
		if name == "" || name == "_metadata" || name == "__metadata" {
			continue
		}
		e := lf.Entries[k]
		if e == nil || e.Version == "" {
			continue
		}
		out[name] = e.Version
	}
	return out
}

// PackageName returns the package part of a descriptor such as
// "lodash@^4.17.21" or "@types/node@^20".
func PackageName(descriptor string) string {
	d := strings.Trim(descriptor, " \"'\\")
	start := 0
	if strings.HasPrefix(d, "@") {
		start = 1
	}
	if i := strings.Index(d[start:], "@"); i >= 0 {
		d = d[:start+i]
	}
	return strings.Trim(d, " \"'\\")
}

// cleanKey removes escaping left in quoted descriptors.
func cleanKey(k string) string {
	k = strings.ReplaceAll(k, `\"`, `"`)
	return strings.ReplaceAll(k, `\\`, `\`)
}

// splitField splits `version "1.2.3"` into name and unquoted value.
func splitField(s string) (string, string) {
	fields := strings.SplitN(s, " ", 2)
	if len(fields) == 1 {
		return fields[0], ""
	}
	value := strings.TrimSpace(fields[1])
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		value = value[1 : len(value)-1]
	}
	return fields[0], value
}
