package job

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/conveyor"
)

const (
	// DefaultName is used when a job is built without a name.
	DefaultName = "job"

	// DefaultBatchSize is the number of records written per batch.
	DefaultBatchSize = 100

	// NoErrorThreshold disables the processing error threshold.
	NoErrorThreshold int64 = math.MaxInt64
)

// Parameters configures one job. It is fixed once the job is built.
type Parameters struct {
	// Name identifies the job in logs, reports and the monitor.
	Name string `json:"name" yaml:"name"`

	// BatchSize is the maximum number of records per batch.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// ErrorThreshold is the number of processing errors tolerated. The job
	// fails once the error count goes above it.
	ErrorThreshold int64 `json:"error_threshold" yaml:"error_threshold"`

	// Monitoring registers the running job with the monitor registry.
	Monitoring bool `json:"monitoring" yaml:"monitoring"`

	// BatchScanning re-writes a failed batch one record at a time instead
	// of failing the job.
	BatchScanning bool `json:"batch_scanning" yaml:"batch_scanning"`
}

// DefaultParameters returns Parameters with sensible defaults.
func DefaultParameters() Parameters {
	return Parameters{
		Name:           DefaultName,
		BatchSize:      DefaultBatchSize,
		ErrorThreshold: NoErrorThreshold,
	}
}

// HasErrorThreshold reports whether a threshold is configured.
func (p Parameters) HasErrorThreshold() bool {
	return p.ErrorThreshold != NoErrorThreshold
}

// Validate checks the parameter bounds. Errors wrap
// conveyor.ErrInvalidParameters.
func (p Parameters) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if p.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be >= 1, got %d", p.BatchSize))
	}
	if p.ErrorThreshold < 0 {
		errs = append(errs, fmt.Errorf("error threshold must be >= 0, got %d", p.ErrorThreshold))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", conveyor.ErrInvalidParameters, errors.Join(errs...))
	}
	return nil
}

// LoadParameters decodes YAML parameters from r. Fields missing from the
// document keep their default values.
func LoadParameters(r io.Reader) (Parameters, error) {
	p := DefaultParameters()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Parameters{}, fmt.Errorf("job: decode parameters: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

// LoadParametersFile reads YAML parameters from path.
func LoadParametersFile(path string) (Parameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("job: open parameters: %w", err)
	}
	defer f.Close()
	return LoadParameters(f)
}
