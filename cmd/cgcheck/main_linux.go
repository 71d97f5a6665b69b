// Command cgcheck reports whether the cgroup setup of this machine
// allows measuring and limiting resource usage of benchmarked
// processes, and explains how to fix the setup if not.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/runbench/go-cgroups/pkg/cgroup"
	"github.com/runbench/go-cgroups/pkg/fsutil"
)

var (
	flagDebug    bool
	flagProcinfo string
	flagRequire  []string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cgcheck",
		Short: "Check the cgroup setup for resource measurement and limits",
		Long: `cgcheck analyzes the cgroups of the current process and reports which
subsystems are usable for measuring and limiting the resource usage of
benchmarked processes. With --require it terminates with remediation
hints when a needed subsystem is not usable, like a benchmarking tool
itself would.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().BoolVar(&flagDebug, "debug", false, "Print debug output")
	cmd.Flags().StringVar(&flagProcinfo, "procinfo", "", "Analyze the given file instead of /proc/self/cgroup")
	cmd.Flags().StringSliceVar(&flagRequire, "require", nil, "Fail with remediation hints if these subsystems are not usable")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if flagDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cg, err := openCgroups()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cgroup version: %s\n\n", cg.Version())

	var usable []string
	table := newTable(out, "Subsystem", "Cgroup", "Usable")
	for _, subsystem := range []string{cgroup.IO, cgroup.CPU, cgroup.CPUSet, cgroup.Freeze, cgroup.Memory} {
		// RequireSubsystem drops broken subsystems, so remember the
		// directory first
		dir := ""
		if cg.Has(subsystem) {
			dir = cg.Path(subsystem)
		}
		ok := cg.RequireSubsystem(subsystem, logrus.DebugLevel)
		if ok {
			usable = append(usable, subsystem)
		}
		table.Append([]string{subsystem, dir, strconv.FormatBool(ok)})
	}
	table.Render()
	fmt.Fprintln(out)

	cg.HandleErrors(flagRequire...)

	if len(usable) == 0 {
		fmt.Fprintln(out, "No usable cgroup subsystems found, measurements are not possible.")
		return nil
	}

	child, err := cg.CreateFreshChildCgroup(usable...)
	if err != nil {
		return fmt.Errorf("cannot create child cgroup: %w", err)
	}
	defer child.Remove()

	if err := child.AddTask(os.Getpid()); err != nil {
		return fmt.Errorf("cannot add process to cgroup: %w", err)
	}
	printTelemetry(out, child, usable)

	// move back before cleaning up the child cgroup
	if err := cg.AddTask(os.Getpid()); err != nil {
		return fmt.Errorf("cannot move process back to its cgroup: %w", err)
	}
	return child.KillAllTasks()
}

func openCgroups() (cgroup.Cgroups, error) {
	if flagProcinfo == "" {
		return cgroup.Initialize()
	}
	f, err := os.Open(flagProcinfo)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cgroup.FromSystem(f)
}

// printTelemetry reads every measurement the usable subsystems provide
// from the cgroup the checker itself now runs in.
func printTelemetry(out io.Writer, cg cgroup.Cgroups, usable []string) {
	table := newTable(out, "Measurement", "Value")
	for _, subsystem := range usable {
		switch subsystem {
		case cgroup.CPU:
			if cpuTime, err := cg.ReadCPUTime(); err == nil {
				table.Append([]string{"cpu time", cpuTime.String()})
			}
			if usage, err := cg.ReadUsagePerCPU(); err == nil {
				table.Append([]string{"active cores", strconv.Itoa(len(usage))})
			}
		case cgroup.CPUSet:
			if cpus, err := cg.ReadAvailableCPUs(); err == nil {
				table.Append([]string{"allowed cpus", fmt.Sprint(cpus)})
			}
			if mems, err := cg.ReadAvailableMems(); err == nil {
				table.Append([]string{"allowed memory nodes", fmt.Sprint(mems)})
			}
		case cgroup.Memory:
			if usage, ok, err := cg.ReadMaxMemUsage(); err == nil {
				table.Append([]string{"peak memory", formatMaybe(usage, ok)})
			}
			if count, ok, err := cg.ReadOOMCount(); err == nil {
				table.Append([]string{"oom kills", formatMaybe(count, ok)})
			}
		case cgroup.IO:
			if bytesRead, bytesWritten, err := cg.ReadIOStat(); err == nil {
				table.Append([]string{"block io read", strconv.FormatUint(bytesRead, 10)})
				table.Append([]string{"block io written", strconv.FormatUint(bytesWritten, 10)})
			}
		}
	}
	if stall, ok, err := cg.ReadMemPressure(); err == nil {
		value := "not supported"
		if ok {
			value = stall.String()
		}
		table.Append([]string{"memory pressure", value})
	}
	table.Render()
	fmt.Fprintln(out)

	printMemoryStat(out, cg)
}

// printMemoryStat shows a few interesting accounting details.
func printMemoryStat(out io.Writer, cg cgroup.Cgroups) {
	if !cg.Has(cgroup.Memory) {
		return
	}
	stat, err := fsutil.ReadKeyValuePairs(filepath.Join(cg.Path(cgroup.Memory), "memory.stat"))
	if err != nil {
		logrus.Debugf("Cannot read memory.stat: %v", err)
		return
	}
	table := newTable(out, "memory.stat", "Value")
	for _, key := range []string{"rss", "cache", "swap", "mapped_file"} {
		if value, ok := stat[key]; ok {
			table.Append([]string{key, value})
		}
	}
	table.Render()
}

func formatMaybe(value uint64, ok bool) string {
	if !ok {
		return "not supported"
	}
	return strconv.FormatUint(value, 10)
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetHeader(header)
	return table
}
