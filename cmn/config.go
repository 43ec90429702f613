package cmn

import (
	"net/url"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the TOML-backed configuration surface the CLI binds to. The
// core packages never parse TOML themselves — they take a *Config (or its
// individual fields) as plain arguments.
type Config struct {
	HotbackupPath string `toml:"hotbackup_path"`
	RingPath      string `toml:"ring_path"`
	LeveledPath   string `toml:"leveled_path"`
	S3Path        string `toml:"s3_path"`
	HintsFiles    bool   `toml:"hints_files"`
	S3Endpoint    string `toml:"s3_endpoint"`
}

var tagRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidateTag enforces the `[A-Za-z0-9]+` contract on the operator-supplied
// backup tag (spec.md §6).
func ValidateTag(tag string) error {
	if !tagRe.MatchString(tag) {
		return NewConfigErrorf("tag", "tag %q must match [A-Za-z0-9]+", tag)
	}
	return nil
}

// LoadConfig reads and decodes a TOML config file without validating it.
// Which keys are required depends on the action; callers check them with
// ValidateForBackup, ValidateForRestore or ValidateForRetrieve.
func LoadConfig(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, NewConfigError("file", errors.Wrapf(err, "decoding %s", path))
	}
	return &c, nil
}

func requireDir(key, path string) error {
	if path == "" {
		return NewConfigErrorf(key, "%s is required", key)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return NewConfigError(key, errors.Wrapf(err, "%s %q", key, path))
	}
	if !fi.IsDir() {
		return NewConfigErrorf(key, "%s %q is not a directory", key, path)
	}
	return nil
}

func requireS3Path(key, raw string) error {
	if raw == "" {
		return NewConfigErrorf(key, "%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return NewConfigError(key, errors.Wrapf(err, "%s %q", key, raw))
	}
	if u.Scheme != "s3" || u.Host == "" {
		return NewConfigErrorf(key, "%s %q must be an s3://bucket/key URL", key, raw)
	}
	return nil
}

// ValidateEndpoint checks the optional s3_endpoint key: a URL with an empty
// path component.
func ValidateEndpoint(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return NewConfigError("s3_endpoint", errors.Wrapf(err, "s3_endpoint %q", raw))
	}
	if u.Path != "" {
		return NewConfigErrorf("s3_endpoint", "s3_endpoint %q must not carry a path", raw)
	}
	return nil
}

// ValidateForBackup checks the keys the `backup` action requires.
func (c *Config) ValidateForBackup() error {
	if err := requireDir("hotbackup_path", c.HotbackupPath); err != nil {
		return err
	}
	if err := requireDir("ring_path", c.RingPath); err != nil {
		return err
	}
	if err := requireS3Path("s3_path", c.S3Path); err != nil {
		return err
	}
	return ValidateEndpoint(c.S3Endpoint)
}

// ValidateForRestore checks the keys the `restore` action requires.
func (c *Config) ValidateForRestore() error {
	if err := requireDir("leveled_path", c.LeveledPath); err != nil {
		return err
	}
	if err := requireDir("ring_path", c.RingPath); err != nil {
		return err
	}
	if err := requireS3Path("s3_path", c.S3Path); err != nil {
		return err
	}
	return ValidateEndpoint(c.S3Endpoint)
}

// ValidateForRetrieve checks the keys the `retrieve` action requires.
func (c *Config) ValidateForRetrieve() error {
	if err := requireDir("ring_path", c.RingPath); err != nil {
		return err
	}
	if err := requireS3Path("s3_path", c.S3Path); err != nil {
		return err
	}
	return ValidateEndpoint(c.S3Endpoint)
}
