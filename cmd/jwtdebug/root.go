package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/bionicotaku/lingo-utils-jwtdebug"
	"github.com/bionicotaku/lingo-utils-jwtdebug/internal/logger"
)

const envPrefix = "JWTDEBUG"

// app carries the state shared by all subcommands.
type app struct {
	v       *viper.Viper
	log     *slog.Logger
	cfgFile string
	envFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: initViper()}

	root := &cobra.Command{
		Use:   "jwtdebug",
		Short: "Decode, encode and verify JSON Web Tokens",
		Long: `jwtdebug inspects JSON Web Tokens. It decodes header and payload, signs new
tokens with HMAC, RSA, RSA-PSS or ECDSA keys and verifies signatures and expiry,
explaining exactly why a token or key was rejected.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("alg", "", "algorithm (HS256, RS256, PS256, ES256, none, ...)")
	flags.String("secret", "", "HMAC secret as text")
	flags.String("pem-file", "", "PEM key or certificate file")
	flags.String("jwk-file", "", "JWK JSON file")
	flags.String("jwk", "", "JWK JSON inline")
	flags.String("locale", "en-US", "locale used to format dates")
	flags.String("timezone", "Local", "time zone used to format dates")
	flags.Int("truncate", 0, "shorten sub and iss to this many characters")

	bindFlags(a.v, root)

	root.AddCommand(
		newDecodeCmd(a),
		newEncodeCmd(a),
		newVerifyCmd(a),
		newWatchCmd(a),
		newMintCmd(a),
	)
	return root
}

// initViper sets the config file lookup and the JWTDEBUG_ environment prefix.
func initViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/jwtdebug")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("display.locale", "en-US")
	v.SetDefault("display.timezone", "Local")
	return v
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("alg", flags.Lookup("alg"))
	_ = v.BindPFlag("key.secret", flags.Lookup("secret"))
	_ = v.BindPFlag("key.pem_file", flags.Lookup("pem-file"))
	_ = v.BindPFlag("key.jwk_file", flags.Lookup("jwk-file"))
	_ = v.BindPFlag("key.jwk", flags.Lookup("jwk"))
	_ = v.BindPFlag("display.locale", flags.Lookup("locale"))
	_ = v.BindPFlag("display.timezone", flags.Lookup("timezone"))
	_ = v.BindPFlag("display.truncate", flags.Lookup("truncate"))
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	level, err := logger.ParseLevel(a.v.GetString("log.level"))
	if err != nil {
		return err
	}
	format, err := logger.ParseFormat(a.v.GetString("log.format"))
	if err != nil {
		return err
	}
	a.log = logger.New(
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithComponent(strings.ToUpper(cmd.Name())),
	)
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug("loaded config", "file", used)
	}
	return nil
}

func (a *app) presenterConfig() (jwtdebug.PresenterConfig, error) {
	cfg := jwtdebug.PresenterConfig{TruncateWidth: a.v.GetInt("display.truncate")}

	tag, err := language.Parse(a.v.GetString("display.locale"))
	if err != nil {
		return cfg, fmt.Errorf("invalid locale %q: %w", a.v.GetString("display.locale"), err)
	}
	cfg.Locale = tag

	loc, err := time.LoadLocation(a.v.GetString("display.timezone"))
	if err != nil {
		return cfg, fmt.Errorf("invalid timezone %q: %w", a.v.GetString("display.timezone"), err)
	}
	cfg.Location = loc
	return cfg, nil
}

func (a *app) presenter() (*jwtdebug.Presenter, error) {
	cfg, err := a.presenterConfig()
	if err != nil {
		return nil, err
	}
	return jwtdebug.NewPresenter(cfg), nil
}
