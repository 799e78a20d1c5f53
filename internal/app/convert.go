package app

import (
	"fmt"

	"github.com/angeloszaimis/link-unwrapper/config"
	"github.com/angeloszaimis/link-unwrapper/internal/breakout"
	"github.com/angeloszaimis/link-unwrapper/internal/classify"
)

// Signatures returns nil for the built-in list and an empty slice when
// in-app detection is switched off.
func Signatures(cfg config.ClassifierConfig) ([]classify.Signature, error) {
	if !cfg.DetectInApp {
		return []classify.Signature{}, nil
	}
	if len(cfg.InAppSignatures) == 0 {
		return nil, nil
	}

	sigs := make([]classify.Signature, 0, len(cfg.InAppSignatures))
	for _, sc := range cfg.InAppSignatures {
		sig, err := classify.CompileSignature(sc.App, sc.Pattern)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// Profiles falls back to breakout.DefaultProfiles when none are configured.
func Profiles(cfgs []config.ProfileConfig) ([]breakout.Profile, error) {
	if len(cfgs) == 0 {
		return breakout.DefaultProfiles(), nil
	}

	profiles := make([]breakout.Profile, 0, len(cfgs))
	for _, pc := range cfgs {
		p, err := profile(pc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pc.Name, err)
		}
		if ReservedPaths[p.Path] {
			return nil, fmt.Errorf("%s: path %s is reserved", pc.Name, p.Path)
		}
		profiles = append(profiles, p.WithDefaults())
	}
	return profiles, nil
}

func profile(pc config.ProfileConfig) (breakout.Profile, error) {
	p := breakout.Profile{
		Name:           pc.Name,
		Path:           pc.Path,
		RedirectStatus: pc.RedirectStatus,
		RefreshDelay:   pc.RefreshDelaySeconds,
	}

	var err error
	if pc.Mode != "" {
		if p.Mode, err = breakout.ParseMode(pc.Mode); err != nil {
			return p, err
		}
	}
	if pc.Landing != "" {
		if p.Landing, err = breakout.ParseLanding(pc.Landing); err != nil {
			return p, err
		}
	}
	if pc.ErrorFormat != "" {
		if p.ErrorFormat, err = breakout.ParseErrorFormat(pc.ErrorFormat); err != nil {
			return p, err
		}
	}

	if p.Techniques.IOS, err = attempts(pc.Techniques.IOS); err != nil {
		return p, err
	}
	if p.Techniques.Android, err = attempts(pc.Techniques.Android); err != nil {
		return p, err
	}
	if p.Techniques.Other, err = attempts(pc.Techniques.Other); err != nil {
		return p, err
	}

	return p, nil
}

func attempts(cfgs []config.AttemptConfig) ([]breakout.Attempt, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	out := make([]breakout.Attempt, 0, len(cfgs))
	for _, ac := range cfgs {
		method, err := breakout.ParseAttemptMethod(ac.Method)
		if err != nil {
			return nil, err
		}
		target, err := breakout.ParseAttemptTarget(ac.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, breakout.Attempt{Method: method, Target: target, DelayMS: ac.DelayMS})
	}
	return out, nil
}
