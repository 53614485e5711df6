package emulator

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DEFAULT_MEMORY_SIZE = 1 << 20 // Default memory size in bytes.
	DEFAULT_BASE        = 0x100   // Default program load address.

	ENV_PREFIX = "NATIVECPU_" // Prefix of environment overrides.
)

// CpuConfig is the initial frame of a virtual CPU.
//
// Entry and Pool are a label of the program, or a number.
type CpuConfig struct {
	Entry  string  `koanf:"entry"`   // First instruction.
	Pool   string  `koanf:"pool"`    // Constant pool pointer.
	Args   []int32 `koanf:"args"`    // Arguments of the initial frame.
	TaskId int32   `koanf:"task_id"` // Task of the initial frame.
}

// Config is the configuration of a machine.
type Config struct {
	MemorySize uint32 `koanf:"memory_size"` // Size of the shared memory.
	ArrayBase  uint32 `koanf:"array_base"`  // Raw header bytes of array handles.
	Base       uint32 `koanf:"base"`        // Program load address.

	Verbose bool `koanf:"verbose"` // Verbose logging.
	Debug   bool `koanf:"debug"`   // Record execution slices.
	Profile bool `koanf:"profile"` // Profile the frames of every CPU.

	// Supervisor properties, keyed by the lower case property name
	// without the SUPERVISOR_ prefix. Values are labels or numbers.
	Properties map[string]string `koanf:"properties"`

	Cpus []CpuConfig `koanf:"cpus"` // Virtual CPUs.
}

// DefaultConfig returns a single CPU configuration, entering the program at
// the "main" label.
func DefaultConfig() Config {
	return Config{
		MemorySize: DEFAULT_MEMORY_SIZE,
		Base:       DEFAULT_BASE,
		Cpus: []CpuConfig{
			{Entry: "main"},
		},
	}
}

// envKey maps NATIVECPU_PROPERTIES__TASK_SYSCALL_METHOD_HANDLER to
// properties.task_syscall_method_handler.
func envKey(name string) string {
	name = strings.TrimPrefix(name, ENV_PREFIX)
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, "__", ".")
}

// LoadConfig loads the defaults, then the YAML file at path if path is not
// empty, then the NATIVECPU_ environment overrides.
func LoadConfig(path string) (cfg Config, err error) {
	cfg = DefaultConfig()

	k := koanf.New(".")

	if len(path) != 0 {
		err = k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			err = &ErrConfig{Path: path, Err: err}
			return
		}
	}

	err = k.Load(env.Provider(ENV_PREFIX, ".", envKey), nil)
	if err != nil {
		err = &ErrConfig{Path: ENV_PREFIX + "*", Err: err}
		return
	}

	err = k.Unmarshal("", &cfg)
	if err != nil {
		err = &ErrConfig{Path: path, Err: err}
		return
	}

	if len(cfg.Cpus) == 0 {
		err = &ErrConfig{Path: path, Err: ErrNoCpus}
		return
	}

	return
}
