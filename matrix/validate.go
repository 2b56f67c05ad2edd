package matrix

import (
	"github.com/rotisserie/eris"
	"golang.org/x/mod/semver"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = eris.New("invalid build table")

// Validate checks a platform row.
func (p *PlatformSpec) Validate() error {
	if !p.Name.Valid() {
		return eris.Wrapf(ErrInvalid, "unknown platform %q", p.Name)
	}
	if p.SDK == "" {
		return eris.Wrapf(ErrInvalid, "%s: sdk is required", p.Name)
	}
	if !semver.IsValid("v" + p.DeploymentTarget) {
		return eris.Wrapf(ErrInvalid, "%s: deployment target %q is not a version", p.Name, p.DeploymentTarget)
	}
	if len(p.Archs) == 0 {
		return eris.Wrapf(ErrInvalid, "%s: no architectures declared", p.Name)
	}
	seen := make(map[string]bool, len(p.Archs))
	for _, arch := range p.Archs {
		if arch == "" {
			return eris.Wrapf(ErrInvalid, "%s: empty architecture", p.Name)
		}
		if seen[arch] {
			return eris.Wrapf(ErrInvalid, "%s: architecture %s declared twice", p.Name, arch)
		}
		seen[arch] = true
	}
	return nil
}

// Validate checks a library and all of its platform rows.
func (l *Library) Validate() error {
	if l.Name == "" {
		return eris.Wrap(ErrInvalid, "library without name")
	}
	if l.Lib == "" {
		return eris.Wrapf(ErrInvalid, "%s: lib is required", l.Name)
	}
	if !l.Variant.Valid() {
		return eris.Wrapf(ErrInvalid, "%s: unknown variant %q", l.Name, l.Variant)
	}
	if l.Variant == Amalgamation && l.Amalgamation == "" {
		return eris.Wrapf(ErrInvalid, "%s: amalgamation variant needs an amalgamation file", l.Name)
	}
	if l.Variant != Amalgamation && l.Artifact == "" {
		return eris.Wrapf(ErrInvalid, "%s: artifact path is required", l.Name)
	}
	if len(l.Platforms) == 0 {
		return eris.Wrapf(ErrInvalid, "%s: no platforms declared", l.Name)
	}
	seen := make(map[Platform]bool, len(l.Platforms))
	for i := range l.Platforms {
		p := &l.Platforms[i]
		if seen[p.Name] {
			return eris.Wrapf(ErrInvalid, "%s: platform %s declared twice", l.Name, p.Name)
		}
		seen[p.Name] = true
		if err := p.Validate(); err != nil {
			return eris.Wrapf(err, "library %s", l.Name)
		}
	}
	return nil
}
