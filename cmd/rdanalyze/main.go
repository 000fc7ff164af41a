// Command rdanalyze demonstrates the reaching-definitions driver end to
// end over the toyprogram fixtures: run a named scenario, dump whichever
// observation points were requested.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oisee/reachdef/internal/rdlog"
	"github.com/oisee/reachdef/internal/toyprogram"
	"github.com/oisee/reachdef/pkg/rdfix"
)

func main() {
	var verbose bool
	var observeAt []string

	rootCmd := &cobra.Command{
		Use:   "rdanalyze",
		Short: "Run the reaching-definitions fixpoint driver over a toy scenario",
	}

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "Run one of the built-in scenarios: const-prop, mem-roundtrip, multi-addr, dead-virgin, call-kill, diamond",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(args[0], observeAt, verbose)
		},
	}
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().StringSliceVar(&observeAt, "observe", nil, "ins_addr:before|after pairs to record, e.g. 0x1004:after")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the available scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scenarioNames {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var scenarioNames = []string{"const-prop", "mem-roundtrip", "multi-addr", "dead-virgin", "call-kill", "diamond"}

func runScenario(name string, observeFlags []string, verbose bool) error {
	points, err := parseObservationPoints(observeFlags)
	if err != nil {
		return err
	}

	log := rdlog.Nop()
	if verbose {
		log = rdlog.Default()
	}

	arch := toyprogram.Arch()
	opts := rdfix.Options{
		Arch:              arch,
		Log:               log,
		ObservationPoints: points,
		TrackTmps:         true,
	}

	var target *rdfix.Target
	switch name {
	case "const-prop":
		b := toyprogram.ConstantPropagationBlock()
		target, err = rdfix.NewTarget(nil, &rdfix.BlockTarget{VEXBlock: b})
	case "mem-roundtrip":
		b := toyprogram.MemoryRoundTripBlock()
		target, err = rdfix.NewTarget(nil, &rdfix.BlockTarget{VEXBlock: b})
	case "multi-addr":
		b := toyprogram.MultiValuedAddressBlock()
		target, err = rdfix.NewTarget(nil, &rdfix.BlockTarget{VEXBlock: b})
	case "dead-virgin":
		b := toyprogram.DeadVirginBlock()
		target, err = rdfix.NewTarget(nil, &rdfix.BlockTarget{VEXBlock: b})
	case "call-kill":
		loader := toyprogram.NewLoader(0x400000, 0x10000)
		loader.Symbols[0x401000] = "callee"
		opts.Loader = loader
		b := toyprogram.CallBlock(0x401000)
		target, err = rdfix.NewTarget(nil, &rdfix.BlockTarget{AILBlock: b})
	case "diamond":
		g := toyprogram.NewTwoBlockVEXGraph()
		target, err = rdfix.NewTarget(&rdfix.FuncTarget{Graph: g, Addr: uint64(g.Entry())}, nil)
	default:
		return fmt.Errorf("unknown scenario %q, see `rdanalyze list`", name)
	}
	if err != nil {
		return err
	}

	driver := rdfix.NewDriver(opts)
	result, err := driver.Run(target)
	if err != nil {
		return err
	}

	if len(points) == 0 {
		fmt.Printf("scenario %q ran to completion; no observation points requested\n", name)
		return nil
	}
	for _, k := range points {
		st, ok := result.At(k.InsAddr, k.Point)
		if !ok {
			fmt.Printf("0x%x %s: no observation recorded\n", k.InsAddr, k.Point)
			continue
		}
		fmt.Printf("0x%x %s:\n%s\n", k.InsAddr, k.Point, describeState(st))
	}
	return nil
}

func describeState(st fmt.Stringer) string {
	return st.String()
}

func parseObservationPoints(flags []string) ([]rdfix.ObservationKey, error) {
	var out []rdfix.ObservationKey
	for _, f := range flags {
		parts := strings.SplitN(f, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --observe value %q, want ins_addr:before|after", f)
		}
		addrStr := strings.TrimPrefix(strings.ToLower(parts[0]), "0x")
		addr, err := strconv.ParseUint(addrStr, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ins_addr in %q: %w", f, err)
		}
		var point rdfix.OpType
		switch strings.ToLower(parts[1]) {
		case "before":
			point = rdfix.Before
		case "after":
			point = rdfix.After
		default:
			return nil, fmt.Errorf("invalid point %q, want before|after", parts[1])
		}
		out = append(out, rdfix.ObservationKey{InsAddr: addr, Point: point})
	}
	return out, nil
}
