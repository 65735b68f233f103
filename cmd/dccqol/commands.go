package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/dccqol/internal/automation"
	"github.com/cory-johannsen/dccqol/internal/game/combat"
)

// resolveOutput is the JSON printed by resolve.
type resolveOutput struct {
	Resolution *combat.Resolution `json:"resolution"`
	Damage     *combat.DamageRoll `json:"damage,omitempty"`
	Target     *combat.Combatant  `json:"target,omitempty"`
}

func newResolveCmd(a *app) *cobra.Command {
	var (
		scenarioPath string
		rollDamage   bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the attack described by a scenario file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			svc, cleanup, err := buildService(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			w, err := sc.ResolveWeapon(svc.Ruleset().Weapons)
			if err != nil {
				return err
			}
			res, err := svc.Resolve(cmd.Context(), sc.Request(w))
			if err != nil {
				return err
			}
			out := resolveOutput{Resolution: res}
			if rollDamage && res.Outcome.Hit == combat.Hit {
				dmg, err := svc.RollDamage(cmd.Context(), res, w)
				if err != nil {
					return err
				}
				out.Damage = &dmg
				if sc.Target != nil {
					sc.Target.ApplyDamage(dmg.Total)
					out.Target = sc.Target
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario YAML file")
	cmd.Flags().BoolVar(&rollDamage, "damage", false, "roll and apply weapon damage on a hit")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Print the resolution recorded for an idempotency key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := buildService(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := svc.Recorded(cmd.Context(), args[0])
			if errors.Is(err, automation.ErrResolutionPending) {
				return fmt.Errorf("%q: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newBumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bump <formula> <steps>",
		Short: "Step a die along the die chain",
		Example: `  dccqol bump 1d10 2       # 1d14
  dccqol bump -- 1d20 -1   # 1d16`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("steps must be an integer: %w", err)
			}
			svc, cleanup, err := buildService(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), svc.BumpDie(args[0], steps))
			return err
		},
	}
}

func newDistanceCmd(a *app) *cobra.Command {
	var sizeA, sizeB float64
	cmd := &cobra.Command{
		Use:   "distance <x1> <y1> <x2> <y2>",
		Short: "Measure the grid distance between two positions in scene units",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args)
			if err != nil {
				return err
			}
			from := combat.Position{X: v[0], Y: v[1], Size: sizeA}
			to := combat.Position{X: v[2], Y: v[3], Size: sizeB}
			d := combat.Distance(from, to, a.cfg.Grid.Grid())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(d, 'f', -1, 64))
			return err
		},
	}
	cmd.Flags().Float64Var(&sizeA, "size-a", 1, "footprint of the first combatant in squares")
	cmd.Flags().Float64Var(&sizeB, "size-b", 1, "footprint of the second combatant in squares")
	return cmd
}

func newRangeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "range <weapon> <distance>",
		Short: "Classify a distance into a weapon's range band",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("distance must be a number: %w", err)
			}
			svc, cleanup, err := buildService(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()
			w, ok := svc.Ruleset().Weapons.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown weapon %q", args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), svc.RangeBand(d, w))
			return err
		},
	}
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
