package main

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "CAMPY_AMR"

func init() {
	flags := mainCmd.PersistentFlags()

	flags.String("config", "", "Config file. Defaults to campy-amr.yaml in the working or home directory.")
	flags.CountP("verbose", "v", "Log more detail. Repeat for more.")
	flags.BoolP("quiet", "q", false, "Only log warnings and errors.")

	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("quiet", flags.Lookup("quiet"))
}

// initConfig reads the config file and enables environment overrides. A
// missing default config file is not an error; a missing explicit one is.
func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		return viper.ReadInConfig()
	}

	viper.SetConfigName("campy-amr")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")

	var notFound viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return err
	}

	return nil
}

func verbosity() int {
	if viper.GetBool("quiet") {
		return -1
	}

	return viper.GetInt("verbose")
}
