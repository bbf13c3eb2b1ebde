package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/polylink/pkg/bridge"
	fx "github.com/robotalks/polylink/pkg/framework"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/l0/env"
	"github.com/robotalks/polylink/pkg/launcher"
	"github.com/robotalks/polylink/pkg/remote"
)

// Command set modes of a connection.
const (
	ModeLauncher = "launcher"
	ModeRemote   = "remote"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is a running loop with an engine of a robot link.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	Name   string
	Mode   string
	Engine *comm.Engine
	Loop   *fx.Loop

	Launcher *launcher.Host
	Remote   *remote.Host
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	timeout    = 2 * time.Second

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&OpenCmd,
		&CloseCmd,
		&ModeCmd,
		&EventsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Command timeout.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection in mode.
// Empty mode accepts any mode.
func MustBeConnected(mode string, fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		conn := ShellFrom(c).Conn
		if conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		if mode != "" && conn.Mode != mode {
			c.Err(fmt.Errorf("command requires %s mode, current %s", mode, conn.Mode))
			return
		}
		fn(c)
	}
}

// DoCommand runs fn with the command timeout and prints the result.
// A nil result prints OK.
func DoCommand(c *ishell.Context, fn func(ctx context.Context, conn *Conn) (interface{}, error)) error {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	ctx, cancel := context.WithTimeout(s.Conn.Ctx, s.Timeout)
	defer cancel()
	res, err := fn(ctx, s.Conn)
	if err == context.DeadlineExceeded {
		err = fmt.Errorf("command timeout")
	}
	if err != nil {
		c.Err(err)
		return err
	}
	s.Print(c, res)
	return nil
}

// Print prints a command result.
func (s *Shell) Print(c *ishell.Context, res interface{}) {
	if s.OutputJSON {
		if res == nil {
			res = map[string]bool{"ok": true}
		}
		out, err := json.Marshal(res)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	if res == nil {
		c.Println("OK")
		return
	}
	c.Println(res)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Open opens the serial link of the config.
func (s *Shell) Open() error {
	engine, _, err := s.Config.Connect()
	if err != nil {
		return err
	}
	s.Connect(s.Config.Device, engine)
	return nil
}

// Connect starts a loop on an attached engine, in launcher mode.
func (s *Shell) Connect(name string, engine *comm.Engine) {
	conn := &Conn{Name: name, Engine: engine, Loop: fx.NewLoop()}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	conn.Loop.Add(engine)
	if s.Conn != nil {
		s.Conn.Cancel()
	}
	s.Conn = conn
	s.SetMode(ModeLauncher)
	go conn.Loop.Run(conn.Ctx)
}

// SetMode configures the engine of the connection for a command set.
func (s *Shell) SetMode(mode string) error {
	conn := s.Conn
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	switch mode {
	case ModeLauncher:
		conn.Launcher, conn.Remote = launcher.NewHost(conn.Engine), nil
	case ModeRemote:
		conn.Launcher, conn.Remote = nil, remote.NewHost(conn.Engine)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	conn.Mode = mode
	s.Shell.SetPrompt(fmt.Sprintf("%s [%s] > ", conn.Name, mode))
	return nil
}

// Events returns the event channel of the current mode.
func (conn *Conn) Events() <-chan *comm.Packet {
	if conn.Remote != nil {
		return conn.Remote.Events()
	}
	return conn.Launcher.Events()
}

// Describe formats an event packet of the current mode.
func (conn *Conn) Describe(pkt *comm.Packet) string {
	if conn.Remote != nil {
		return fmt.Sprintf("%s %x", remote.ResponseName(pkt.Type), pkt.Data)
	}
	return launcher.Describe(pkt)
}

// Disconnect closes current connection.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Conn == nil {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.Device)
		}
		if err := s.Open(); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Device, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd lists bridges advertised on the local network.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "list bridges on the local network",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			found, err := bridge.Discover(context.Background(), s.Timeout)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if found == nil {
					found = []bridge.Service{}
				}
				s.Print(c, found)
				return
			}
			if len(found) == 0 {
				c.Println("No bridges found")
				return
			}
			for _, svc := range found {
				c.Printf("%s %s %v\n", svc.Instance, svc.Address(), svc.Text)
			}
		},
	}

	// OpenCmd opens a serial device.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Config.Device = c.Args[0]
			}
			if err := s.Open(); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes current connection.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// ModeCmd shows or switches the command set.
	ModeCmd = ishell.Cmd{
		Name: "mode",
		Help: "[launcher|remote]",
		Func: MustBeConnected("", func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 0 {
				c.Println(s.Conn.Mode)
				return
			}
			if err := s.SetMode(c.Args[0]); err != nil {
				c.Err(err)
			}
		}),
	}

	// EventsCmd prints pending events.
	EventsCmd = ishell.Cmd{
		Name:    "events",
		Aliases: []string{"ev"},
		Help:    "print pending events",
		Func: MustBeConnected("", func(c *ishell.Context) {
			conn := ShellFrom(c).Conn
			for {
				select {
				case pkt := <-conn.Events():
					c.Println(conn.Describe(pkt))
				default:
					return
				}
			}
		}),
	}
)
