package cmd

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRunnerProcesses(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Process Runner Suite")
}

var _ = Describe("Runner against real processes", func() {
	var runner *Runner

	BeforeEach(func() {
		runner = NewRunner("sh", "", 5*time.Second, 1024)
	})

	It("reports success with trimmed stdout", func() {
		res := runner.Run(context.Background(), []string{"-c", "echo '  hello  '"})
		Expect(res.Success).To(BeTrue())
		Expect(res.Kind).To(Equal(FailureNone))
		Expect(res.Stdout).To(Equal("hello"))
	})

	It("keeps stderr and the exit code of a failing command", func() {
		res := runner.Run(context.Background(), []string{"-c", "echo partial; echo broken >&2; exit 3"})
		Expect(res.Success).To(BeFalse())
		Expect(res.Kind).To(Equal(FailureExit))
		Expect(res.Stdout).To(Equal("partial"))
		Expect(res.Stderr).To(Equal("broken"))
		Expect(res.ExitCode).NotTo(BeNil())
		Expect(*res.ExitCode).To(Equal(3))
	})

	It("kills a command that outlives the timeout", func() {
		runner.Timeout = 200 * time.Millisecond
		start := time.Now()
		res := runner.Run(context.Background(), []string{"-c", "exec sleep 10"})
		Expect(res.Kind).To(Equal(FailureTimeout))
		Expect(res.Success).To(BeFalse())
		Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
	})

	It("fails instead of truncating when output exceeds the cap", func() {
		res := runner.Run(context.Background(), []string{"-c", "head -c 100000 /dev/zero | tr '\\0' 'x'"})
		Expect(res.Kind).To(Equal(FailureOutputLimit))
		Expect(res.Success).To(BeFalse())
		Expect(len(res.Stdout)).To(BeNumerically("<=", 1024))
	})

	It("reports a process killed by a signal apart from launch failures", func() {
		res := runner.Run(context.Background(), []string{"-c", "echo dying >&2; kill -9 $$"})
		Expect(res.Kind).To(Equal(FailureSignal))
		Expect(res.Success).To(BeFalse())
		Expect(res.ExitCode).To(BeNil())
		Expect(res.Stderr).To(Equal("dying"))
		Expect(res.Describe()).To(ContainSubstring("killed"))
	})

	It("reports a missing binary as a launch failure", func() {
		runner.Binary = "definitely-not-a-real-binary-4f1c"
		res := runner.Run(context.Background(), []string{"version"})
		Expect(res.Kind).To(Equal(FailureLaunch))
		Expect(res.ExitCode).NotTo(BeNil())
		Expect(*res.ExitCode).To(Equal(127))
	})
})
