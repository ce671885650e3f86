package rig

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/store"
)

// DefaultProfile is the name rig parameters are saved under.
const DefaultProfile = "kinect 2 settings"

// Save writes the current parameters to s under name.
func (r *Rig) Save(ctx context.Context, s store.Store, name string) error {
	data, err := json.MarshalIndent(r.params, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrapf(s.Put(ctx, name, data), "saving rig profile %q", name)
}

// Load replaces the parameters with the profile stored under name. Out of range values are
// clamped and logged. On any failure the current parameters are kept.
func (r *Rig) Load(ctx context.Context, s store.Store, name string, logger logging.Logger) error {
	data, err := s.Get(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "loading rig profile %q", name)
	}
	var p Parameters
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrapf(err, "decoding rig profile %q", name)
	}
	if verr := p.Validate(); verr != nil {
		fields := make([]string, 0, len(multierr.Errors(verr)))
		for _, e := range multierr.Errors(verr) {
			fields = append(fields, e.Error())
		}
		logger.Warnw("clamping rig profile", "profile", name, "violations", fields)
	}
	r.params = p.Clamp()
	return nil
}
