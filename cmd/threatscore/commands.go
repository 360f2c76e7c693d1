package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zero-day-ai/threatscore"
	"github.com/zero-day-ai/threatscore/incident"
	"github.com/zero-day-ai/threatscore/types"
)

// Setting keys shared by flags and THREATSCORE_* environment variables.
const (
	keyConfig    = "config"
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
	keySector    = "sector"
	keyActorType = "actor-type"
	keyFrequency = "frequency"
	keyNoCache   = "no-cache"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("THREATSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Threat actor profiling and risk scoring",
		Long: `threatscore merges ATT&CK technique usage, NIST 800-53 control
violations, CVE and CWE data, VERIS impact classifications, technique
complexity ratings and an incident log into per-actor analytics and one
composite risk score.

Every command prints JSON on stdout. Logs go to stderr.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringP(keyConfig, "c", "", "Config file or directory (default: search threatscore.yaml upwards from the working directory)")
	flags.String(keyLogLevel, "", "Log level (debug, info, warn, error)")
	flags.String(keyLogFormat, "", "Log format (text, json)")
	flags.String(keySector, "", "Targeted sector (default: the actor's most targeted industry)")
	flags.String(keyActorType, "", "Actor type (Nation-State, Criminal, Terrorist, Hacktivist, Hobbyist)")
	flags.Float64(keyFrequency, 0, "Override the incident frequency score, 0.01 to 1 (default: computed from the incident log)")
	flags.Bool(keyNoCache, false, "Ignore cached profiles")
	_ = v.BindPFlags(flags)

	cmd.AddCommand(
		newActorsCommand(v),
		newProfileCommand(v),
		newScoreCommand(v),
		newAllCommand(v),
		newCheckCommand(v),
		newIncidentsCommand(v),
		newWatchCommand(v),
		newVersionCommand(),
	)
	return cmd
}

func newActorsCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "actors",
		Short: "List the known threat actor groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			a, err := newApp(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			return writeJSON(cmd.OutOrStdout(), a.actors())
		},
	}
}

func newProfileCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <actor>",
		Short: "Profile one actor by ATT&CK ID, name or alias",
		Example: `  threatscore profile G0007
  threatscore profile "Fancy Bear" --sector Finance --actor-type Nation-State`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			a, err := newApp(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			profile, err := a.profiler.Profile(cmd.Context(), args[0], s.profileOptions())
			if err != nil {
				return err
			}
			if err := profile.Err(); err != nil {
				a.logger.Warn("score undefined", "actor", profile.Actor.ID, "error", err)
			}
			return writeJSON(cmd.OutOrStdout(), profile)
		},
	}
}

func newScoreCommand(v *viper.Viper) *cobra.Command {
	var ttps string

	cmd := &cobra.Command{
		Use:     "score",
		Short:   "Score an arbitrary technique set",
		Example: `  threatscore score --ttps "T1548, T1548.002"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			techniques, err := types.ParseTechniqueList(ttps)
			if err != nil {
				return threatscore.NewValidationError("score", fmt.Errorf("%w: %v", threatscore.ErrInvalidTechnique, err))
			}
			if len(techniques) == 0 {
				return threatscore.NewValidationError("score", errors.New("--ttps lists no techniques"))
			}

			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			a, err := newApp(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			profile, err := a.profiler.ProfileTechniques(cmd.Context(), techniques, s.profileOptions())
			if err != nil {
				return err
			}
			if err := profile.Err(); err != nil {
				a.logger.Warn("score undefined", "techniques", profile.Query, "error", err)
			}
			return writeJSON(cmd.OutOrStdout(), profile)
		},
	}

	cmd.Flags().StringVar(&ttps, "ttps", "", "Comma-separated technique IDs")
	_ = cmd.MarkFlagRequired("ttps")
	return cmd
}

// ranking is one line of the all command output.
type ranking struct {
	Actor   string        `json:"actor"`
	Name    string        `json:"name"`
	Total   types.Measure `json:"total"`
	Missing []string      `json:"missing,omitempty"`
}

func newAllCommand(v *viper.Viper) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Score every known actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			a, err := newApp(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			profiles, err := a.profiler.ProfileAll(cmd.Context(), s.profileOptions())
			if err != nil {
				// Undefined scores are expected for sparse actors; only cancellation aborts.
				if cerr := cmd.Context().Err(); cerr != nil {
					return cerr
				}
				a.logger.Warn("some scores are undefined", "error", err)
			}

			if full {
				return writeJSON(cmd.OutOrStdout(), profiles)
			}
			return writeJSON(cmd.OutOrStdout(), rankProfiles(profiles))
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print full profiles instead of the ranking")
	return cmd
}

func newCheckCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load every dataset and report its health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			a, err := newApp(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.health()
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Overall.IsUnhealthy() {
				return fmt.Errorf("%w: %s", threatscore.ErrDatasetUnavailable, report.Overall.Message)
			}
			return nil
		},
	}
}

// incidentReport is the incidents command output.
type incidentReport struct {
	Ranking   []incident.ActorCount   `json:"ranking"`
	Countries []incident.CountryCount `json:"countries"`
}

func newIncidentsCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "incidents",
		Short: "Rank actors by incident count and list targeted countries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			a, err := newApp(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			return writeJSON(cmd.OutOrStdout(), incidentReport{
				Ranking:   a.profiler.Frequencies().Ranking(),
				Countries: incident.ActorsPerCountry(a.profiler.Snapshot().Incidents()),
			})
		},
	}
}

func newWatchCommand(v *viper.Viper) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow profile events published on the cache",
		Long: `Prints one JSON line per profile computed by any threatscore process
sharing the configured Redis cache. Stops on interrupt or after --limit events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			a, err := newApp(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cache == nil {
				return threatscore.NewConfigurationError("watch", fmt.Errorf("%w: no profile cache configured", threatscore.ErrInvalidConfig))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			events, err := a.cache.Subscribe(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("watching profile events", "channel", a.cache.EventsChannel())

			enc := json.NewEncoder(cmd.OutOrStdout())
			seen := 0
			for event := range events {
				if err := enc.Encode(event); err != nil {
					return err
				}
				seen++
				if limit > 0 && seen >= limit {
					return nil
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many events (0 means no limit)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
