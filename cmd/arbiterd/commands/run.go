package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	arbiter "github.com/arbiter-run/arbiter"
	"github.com/arbiter-run/arbiter/actor"
	"github.com/arbiter-run/arbiter/ask"
	"github.com/arbiter-run/arbiter/executor"
	"github.com/arbiter-run/arbiter/log"
)

var runCmd = &cobra.Command{
	Use:       "run [scenario]",
	Short:     "Run a scripted scenario against a fresh ActorSystem",
	ValidArgs: []string{"echo", "restart"},
	Args:      cobra.ExactValidArgs(1),
	RunE:      runScenario,
}

func loggerFor(level string) log.Logger {
	if level == "discard" {
		return log.Discard
	}
	return log.Stderr
}

func buildSystem() (*arbiter.ActorSystem, *executor.Pool, error) {
	pool := executor.New(4, loggerFor(viper.GetString("log_level")))

	sys, err := arbiter.New(
		pool,
		arbiter.WithThroughput(viper.GetInt("throughput")),
		arbiter.WithMailboxCapacity(viper.GetInt("mailbox_capacity")),
		arbiter.WithRestartIntensity(viper.GetInt("restart_intensity"), time.Duration(viper.GetInt("restart_period_ms"))*time.Millisecond),
		arbiter.WithLogger(loggerFor(viper.GetString("log_level"))),
	)
	if err != nil {
		pool.Stop()
		pool.Wait()
		return nil, nil, fmt.Errorf("building actor system: %w", err)
	}
	return sys, pool, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sys, pool, err := buildSystem()
	if err != nil {
		return err
	}
	defer func() {
		sys.Shutdown()
		pool.Stop()
		pool.Wait()
	}()

	switch args[0] {
	case "echo":
		return runEcho(sys)
	case "restart":
		return runRestart(sys)
	}
	return fmt.Errorf("unknown scenario %q", args[0])
}

type echoActor struct{}

func (echoActor) Receive(ctx *actor.Context[uint32], msg uint32, sender actor.Reference) {
	sender.Tell(msg*2, ctx.Myself().Reference)
}

func runEcho(sys *arbiter.ActorSystem) error {
	echo, err := arbiter.ActorOf(sys, "echo", actor.Props[uint32]{New: func() actor.Actor[uint32] { return echoActor{} }})
	if err != nil {
		return err
	}

	v, err := ask.AskTimeout(sys.TempSpawner(), echo.Reference, uint32(21), 2*time.Second)
	if err != nil {
		return fmt.Errorf("ask echo: %w", err)
	}
	fmt.Printf("echo(21) = %v\n", v)
	return nil
}

type flaky struct {
	n int
}

func (f *flaky) Receive(ctx *actor.Context[uint32], msg uint32, sender actor.Reference) {
	f.n++
	fmt.Printf("flaky received %d (attempt %d)\n", msg, f.n)
	if f.n%3 == 0 {
		panic("simulated failure")
	}
}

func runRestart(sys *arbiter.ActorSystem) error {
	ref, err := arbiter.ActorOf(sys, "flaky", actor.Props[uint32]{New: func() actor.Actor[uint32] { return &flaky{} }})
	if err != nil {
		return err
	}

	for i := uint32(1); i <= 6; i++ {
		ref.Tell(i, actor.Reference{})
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
