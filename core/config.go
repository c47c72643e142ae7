package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// storage backends
const (
	BackendXLSX   = "xlsx"
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

type (
	Config struct {
		Env          string `mapstructure:"env" validate:"oneof=DEV TEST QA PROD"`
		Build        string `mapstructure:"build"`
		Debug        bool   `mapstructure:"debug"`
		TestMode     bool   `mapstructure:"testMode"`
		AppName      string `mapstructure:"appName" validate:"required"`
		SecretKey    string `mapstructure:"secretKey" validate:"required"`
		RollbarToken string `mapstructure:"rollbarToken"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Storage  StorageConfig  `mapstructure:"storage"`
		Sheets   SheetsConfig   `mapstructure:"sheets"`
		Sync     SyncConfig     `mapstructure:"sync"`
		Batch    BatchConfig    `mapstructure:"batch"`
	}

	ServerConfig struct {
		Host               string        `mapstructure:"host"`
		Address            string        `mapstructure:"address"`
		DebugHost          string        `mapstructure:"debugHost"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine" validate:"oneof=postgres sqlite"`
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
		// Path is the sqlite database file.
		Path string `mapstructure:"path"`
	}

	StorageConfig struct {
		Backend      string `mapstructure:"backend" validate:"oneof=xlsx sql memory"`
		WorkbookPath string `mapstructure:"workbookPath"`
	}

	// SheetsConfig holds the names of the tables the sync engine works with.
	SheetsConfig struct {
		Roster     string `mapstructure:"roster" validate:"notblank,max=31"`
		Ledger     string `mapstructure:"ledger" validate:"notblank,max=31"`
		View       string `mapstructure:"view" validate:"notblank,max=31"`
		Properties string `mapstructure:"properties" validate:"notblank,max=31"`
	}

	SyncConfig struct {
		AttendanceSlots    int    `mapstructure:"attendanceSlots" validate:"min=0,max=60"`
		IdentityOffset     int    `mapstructure:"identityOffset" validate:"min=2"`
		StagePrefix        string `mapstructure:"stagePrefix" validate:"notblank"`
		SupplementalPrefix string `mapstructure:"supplementalPrefix" validate:"notblank"`
		MatchMode          string `mapstructure:"matchMode" validate:"oneof=exact substring"`
		ConflictPolicy     string `mapstructure:"conflictPolicy" validate:"oneof=overwrite reject"`
	}

	BatchConfig struct {
		ChunkSize      int           `mapstructure:"chunkSize" validate:"min=1"`
		Pause          time.Duration `mapstructure:"pause"`
		MaxRowsPerCall int           `mapstructure:"maxRowsPerCall" validate:"min=0"`
	}
)

func (db DatabaseConfig) Address() string {
	if db.Port == "" {
		return db.Host
	}
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the Config from defaults, the optional `config/.env.<env>` file and the environment.
// It exits the program if the Config cannot be loaded.
func NewConfig() *Config {
	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	env = strings.ToUpper(env)

	root, err := ProjectRoot()
	if err != nil {
		log.Fatalf("config.ProjectRoot(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	conf, err := LoadConfig(viper.New(), env)
	if err != nil {
		log.Fatalf("config.LoadConfig(): %v", err)
	}
	return conf
}

// LoadConfig reads a Config for `env` out of `v`, which is populated with defaults and bound to the environment.
// Environment variables are prefixed by `env`: DEV_SYNC_MATCHMODE=substring.
func LoadConfig(v *viper.Viper, env string) (*Config, error) {
	setDefaults(v, env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("env", env)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "LessonDesk")
	v.SetDefault("secretKey", "w7c%ld=q3j!l4s@xk(0u)p+v9f&lesson$desk^2t#n8r*b1ah")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "lessondesk")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "lessondesk.db")

	v.SetDefault("storage.backend", BackendXLSX)
	v.SetDefault("storage.workbookPath", "lessons.xlsx")

	v.SetDefault("sheets.roster", "Roster")
	v.SetDefault("sheets.ledger", "Skills Ledger")
	v.SetDefault("sheets.view", "Class View")
	v.SetDefault("sheets.properties", "_properties")

	v.SetDefault("sync.attendanceSlots", 8)
	v.SetDefault("sync.identityOffset", 2)
	v.SetDefault("sync.stagePrefix", "S")
	v.SetDefault("sync.supplementalPrefix", "SAW")
	v.SetDefault("sync.matchMode", "exact")
	v.SetDefault("sync.conflictPolicy", "overwrite")

	v.SetDefault("batch.chunkSize", 500)
	v.SetDefault("batch.pause", 250*time.Millisecond)
	v.SetDefault("batch.maxRowsPerCall", 0)
}

// Validate checks the Config against its `validate` struct tags.
func (conf *Config) Validate() error {
	validate := validator.New()
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	if err := validate.Struct(conf); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			flds := make([]FieldError, 0, len(vErrs))
			for _, vErr := range vErrs {
				flds = append(flds, FieldError{Field: vErr.Namespace(), Error: vErr.Tag()})
			}
			return NewValidationError(errors.New("invalid configuration"), flds...)
		}
		return errors.Wrap(err, "validating config")
	}
	return nil
}
