/*
 * AudioControl is a control daemon for audio players.
 * Copyright (C) 2025 Tero Vierimaa
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strings"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"tryffel.net/go/audiocontrol/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use: config.AppNameLower,
	Long: `AudioControl is a daemon that unifies control over audio player backends
behind one http/json api and websocket event stream.
`,

	Run: func(cmd *cobra.Command, args []string) {
		initConfig()
		app, err := initApplication()
		if err != nil {
			logrus.Fatalf("Failed to initialize application: %v", err)
		}
		app.run()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file")
}

func initConfig() {
	// default config dir is ~/.config/audiocontrol
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := os.UserConfigDir()
		if err != nil {
			logrus.Errorf("cannot determine config directory: %v", err)
			configDir = ""
		} else {
			configDir = path.Join(configDir, config.AppNameLower)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigFile(path.Join(configDir, config.AppNameLower+".json"))
	}
	viper.SetConfigType("json")

	// env variables
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvPrefix(config.AppNameLower)
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = config.NewConfigFile(cfgFile); err != nil {
				logrus.Fatalf("create config file: %v", err)
			}
		} else {
			logrus.Fatalf("read config file: %v", err)
		}
	}

	if err := config.ConfigFromViper(); err != nil {
		logrus.Fatalf("read config file: %v", err)
	}
	if err := config.SaveConfig(); err != nil {
		logrus.Errorf("save config file: %v", err)
	}
	config.ConfigFile = viper.ConfigFileUsed()
}

func initLogging() error {
	level, err := logrus.ParseLevel(config.AppConfig.General.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing log level '%s': %v. Defaulting to INFO.\n",
			config.AppConfig.General.LogLevel, err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	format := &prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
		QuoteCharacter:  "'",
		Once:            sync.Once{},
	}
	logrus.SetFormatter(format)

	if file := config.AppConfig.General.LogFile; file != "" {
		fd, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		format.DisableColors = true
		logrus.SetOutput(fd)
		return nil
	}
	format.ForceColors = true
	logrus.SetOutput(os.Stderr)
	return nil
}

func (a *app) run() {
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logrus.Info("Shutting down")
	a.stop()
}
