package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/adrg/xdg"
	log "github.com/sirupsen/logrus"
	logwriter "github.com/sirupsen/logrus/hooks/writer"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/cmd/parse"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/cmd/publish"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/version"
)

const logFile = "junit-reporter/junit-reporter.log"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "junit-reporter",
	Short: "JUnit reporter",
	Long:  `JUnit reporter aggregates JUnit XML reports of a CI job and publishes them as GitHub check runs, a job summary and a pull request comment`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loglevel := viper.GetString("log-level")
		logrusLevel, err := log.ParseLevel(loglevel)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)

		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})

		log.SetOutput(os.Stdout)
		path, err := xdg.StateFile(logFile)
		if err != nil {
			log.Debugf("unable to resolve log file %s: %v", logFile, err)
			return
		}
		fdLog, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			log.Errorf("error opening file %s: %v", path, err)
			return
		}
		log.AddHook(&logwriter.Hook{
			Writer: fdLog,
			LogLevels: []log.Level{
				log.PanicLevel,
				log.FatalLevel,
				log.ErrorLevel,
				log.WarnLevel,
				log.InfoLevel,
				log.DebugLevel,
			},
		})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initBindFlag(flag string) {
	err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	if err != nil {
		log.Warnf("Unable to bind flag %s\n", flag)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "logging level")
	initBindFlag("log-level")

	rootCmd.AddCommand(publish.NewCmdPublish())
	rootCmd.AddCommand(parse.NewCmdParseJUnit())
	rootCmd.AddCommand(version.NewCmdVersion())
}

// initConfig reads in ENV variables, so action inputs such as
// INPUT_REPORT_PATHS reach the matching flag.
func initConfig() {
	viper.SetEnvPrefix(pkg.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
