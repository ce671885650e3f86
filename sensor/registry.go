package sensor

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/rigview/logging"
)

// Config describes one sensor: which registered model builds it and the model specific
// attributes, decoded by the model itself.
type Config struct {
	Name       string          `json:"name"`
	Model      string          `json:"model"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// Validate checks the fields every model needs.
func (conf *Config) Validate(path string) error {
	if conf.Name == "" {
		return errors.Errorf("%s: sensor name is required", path)
	}
	if conf.Model == "" {
		return errors.Errorf("%s: sensor %q needs a model", path, conf.Name)
	}
	return nil
}

// DecodeAttributes unmarshals the attributes into the given model config. Missing
// attributes leave into untouched.
func (conf *Config) DecodeAttributes(into interface{}) error {
	if len(conf.Attributes) == 0 {
		return nil
	}
	if err := json.Unmarshal(conf.Attributes, into); err != nil {
		return errors.Wrapf(err, "decoding attributes of sensor %q", conf.Name)
	}
	return nil
}

// A Create builds a sensor from its config.
type Create func(ctx context.Context, conf Config, logger logging.Logger) (Sensor, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Create{}
)

// Register makes a model available to New. Registering a model twice panics, like
// registering a resource twice would.
func Register(model string, creator Create) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[model]; ok {
		panic(errors.Errorf("trying to register two sensor models with the same name %q", model))
	}
	if creator == nil {
		panic(errors.Errorf("cannot register a nil constructor for sensor model %q", model))
	}
	registry[model] = creator
}

// RegisteredModels lists the model names available to New.
func RegisteredModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := make([]string, 0, len(registry))
	for m := range registry {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// New builds the sensor described by conf.
func New(ctx context.Context, conf Config, logger logging.Logger) (Sensor, error) {
	if err := conf.Validate("sensor"); err != nil {
		return nil, err
	}
	registryMu.RLock()
	creator, ok := registry[conf.Model]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown sensor model %q (have %v)", conf.Model, RegisteredModels())
	}
	s, err := creator(ctx, conf, logger.Sublogger(conf.Name))
	if err != nil {
		return nil, errors.Wrapf(err, "creating sensor %q", conf.Name)
	}
	return s, nil
}
