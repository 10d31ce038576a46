package k8s

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// ArgString joins an argument vector for display.
func ArgString(args []string) string {
	return strings.Join(args, " ")
}

func namespaceArgs(p Params) []string {
	ns := p.String("namespace")
	switch {
	case ns == "":
		return nil
	case isAllNamespaces(ns):
		return []string{"-A"}
	default:
		return []string{"-n", ns}
	}
}

func buildGet(in Invocation) []string {
	p := in.Params
	args := []string{"get", p.String("resource")}
	if p.Has("name") {
		args = append(args, p.String("name"))
	}
	args = append(args, namespaceArgs(p)...)
	if p.Has("output") {
		args = append(args, "-o", p.String("output"))
	}
	if p.Has("selector") {
		args = append(args, "-l", p.String("selector"))
	}
	if p.Has("fieldSelector") {
		args = append(args, "--field-selector="+p.String("fieldSelector"))
	}
	return args
}

func buildDescribe(in Invocation) []string {
	p := in.Params
	args := []string{"describe", p.String("resource"), p.String("name")}
	return append(args, namespaceArgs(p)...)
}

func buildLogs(in Invocation) []string {
	p := in.Params
	args := []string{"logs", p.String("pod")}
	args = append(args, namespaceArgs(p)...)
	if p.Has("container") {
		args = append(args, "-c", p.String("container"))
	}
	if p.Bool("previous") {
		args = append(args, "--previous")
	}
	if p.Has("tail") {
		args = append(args, "--tail="+strconv.FormatInt(p.Int("tail"), 10))
	}
	if p.Has("since") {
		args = append(args, "--since="+p.String("since"))
	}
	return args
}

func buildExec(in Invocation) []string {
	p := in.Params
	args := []string{"exec", p.String("pod")}
	args = append(args, namespaceArgs(p)...)
	if p.Has("container") {
		args = append(args, "-c", p.String("container"))
	}
	args = append(args, "--")
	// checkCommand has already rejected unparseable input.
	argv, _ := shlex.Split(p.String("command"))
	return append(args, argv...)
}

func buildEvents(in Invocation) []string {
	p := in.Params
	args := append([]string{"get", "events"}, namespaceArgs(p)...)
	if p.Bool("sort") {
		args = append(args, "--sort-by=.lastTimestamp")
	}
	return args
}

// tailEvents keeps the table header and the last N event rows.
func tailEvents(stdout string, p Params) string {
	n := p.Int("tail")
	if !p.Has("tail") || n <= 0 {
		return stdout
	}
	lines := strings.Split(stdout, "\n")
	if len(lines) <= 1 {
		return stdout
	}
	header, rows := lines[0], lines[1:]
	if int64(len(rows)) <= n {
		return stdout
	}
	rows = rows[int64(len(rows))-n:]
	return header + "\n" + strings.Join(rows, "\n")
}

func buildTop(in Invocation) []string {
	p := in.Params
	resource := p.String("resource")
	args := []string{"top", resource}
	if resource == "pods" {
		args = append(args, namespaceArgs(p)...)
	}
	if p.Has("sortBy") {
		args = append(args, "--sort-by="+p.String("sortBy"))
	}
	return args
}

func buildApply(in Invocation) []string {
	p := in.Params
	args := []string{"apply", "-f", in.ManifestPath}
	args = append(args, namespaceArgs(p)...)
	if p.Bool("dryRun") {
		args = append(args, "--dry-run=client")
	}
	return args
}

func buildDelete(in Invocation) []string {
	p := in.Params
	args := []string{"delete", p.String("resource"), p.String("name")}
	args = append(args, namespaceArgs(p)...)
	if p.Bool("force") {
		args = append(args, "--force", "--grace-period=0")
	}
	return args
}

func buildScale(in Invocation) []string {
	p := in.Params
	args := []string{
		"scale", p.String("resource"), p.String("name"),
		"--replicas=" + strconv.FormatInt(p.Int("replicas"), 10),
	}
	return append(args, namespaceArgs(p)...)
}

func buildRollout(in Invocation) []string {
	p := in.Params
	args := []string{"rollout", p.String("action"), p.String("resource") + "/" + p.String("name")}
	return append(args, namespaceArgs(p)...)
}

func buildClusterInfo(in Invocation) []string {
	args := []string{"cluster-info"}
	if in.Params.Bool("dump") {
		args = append(args, "dump")
	}
	return args
}

func buildPortForward(in Invocation) []string {
	p := in.Params
	args := []string{
		"port-forward", p.String("resource"),
		fmt.Sprintf("%d:%d", p.Int("localPort"), p.Int("remotePort")),
	}
	return append(args, namespaceArgs(p)...)
}
