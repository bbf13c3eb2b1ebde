package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

func writeFile(t *testing.T, content string) string {
	fn := filepath.Join(t.TempDir(), "polylink.toml")
	require.NoError(t, os.WriteFile(fn, []byte(content), 0644))
	return fn
}

func TestLoadFile(t *testing.T) {
	fn := writeFile(t, `
device = " /dev/ttyACM1 "
baud = 115200
read_timeout = "20ms"
checksum = "xor"
send_timeout = "0s"
robot_id = "r1"
`)
	conf := *Default()
	require.NoError(t, conf.LoadFile(fn, map[string]bool{"baud": true}))
	require.Equal(t, "/dev/ttyACM1", conf.Device)
	require.Equal(t, Default().Baud, conf.Baud, "flag takes precedence")
	require.Equal(t, 20*time.Millisecond, conf.ReadTimeout)
	require.Equal(t, "xor", conf.Checksum)
	require.Zero(t, conf.SendTimeout)
	require.Equal(t, "r1", conf.RobotID)
	require.Equal(t, Default().RingCapacity, conf.RingCapacity)
	require.NoError(t, conf.Validate())
}

func TestLoadFileErrors(t *testing.T) {
	conf := *Default()
	require.Error(t, conf.LoadFile(filepath.Join(t.TempDir(), "missing.toml"), nil))
	require.Error(t, conf.LoadFile(writeFile(t, `send_timeout = "soon"`), nil))
	require.Error(t, conf.LoadFile(writeFile(t, `baud = "fast"`), nil))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"checksum", func(c *Config) { c.Checksum = "md5" }},
		{"ring", func(c *Config) { c.RingCapacity = comm.MaxFrameSize }},
		{"baud", func(c *Config) { c.Baud = 0 }},
		{"send-timeout", func(c *Config) { c.SendTimeout = -time.Second }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := *Default()
			require.NoError(t, conf.Validate())
			tc.modify(&conf)
			require.Error(t, conf.Validate())
		})
	}
}

func TestNewEngine(t *testing.T) {
	conf := *Default()
	conf.Checksum = "CRC-CCITT-Reflected"
	conf.RingCapacity = comm.MinRingCapacity
	conf.SendTimeout = time.Millisecond
	e, err := conf.NewEngine()
	require.NoError(t, err)
	require.Equal(t, comm.CRCCCITTReflected, e.Checksum)
	require.Equal(t, comm.MinRingCapacity, e.Ring().Cap())
	require.Equal(t, time.Millisecond, e.SendTimeout)
}
