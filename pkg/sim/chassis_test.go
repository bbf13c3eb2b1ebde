package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRadians(t *testing.T) {
	require.InDelta(t, 0, float64(AngleFromDegrees(360)), 1e-9)
	require.InDelta(t, math.Pi/2, float64(AngleFromDegrees(-270)), 1e-9)
	require.InDelta(t, -math.Pi/2, float64(AngleFromDegrees(-90)), 1e-9)
	require.InDelta(t, -math.Pi/2, float64(AngleFromDegrees(270)), 1e-9)
	require.InDelta(t, 90, AngleFromDegrees(0).AddRadians(5*math.Pi/2).Degrees(), 1e-9)
}

func TestChassisEstimate(t *testing.T) {
	quarterSecs := math.Pi / 4 * DefaultTrack / DefaultMaxSpeed
	quarterTurn := time.Duration(quarterSecs * float64(time.Second))
	testCases := []struct {
		name        string
		left, right int8
		after       time.Duration
		x, y, deg   float64
	}{
		{name: "stopped", after: time.Second},
		{name: "forward", left: 127, right: 127, after: 2 * time.Second, x: 1},
		{name: "reverse", left: -127, right: -127, after: time.Second, x: -0.5},
		{name: "spin left", left: -127, right: 127, after: quarterTurn, deg: 90},
		{name: "spin right", left: 127, right: -127, after: quarterTurn, deg: -90},
		{name: "arc", left: 0, right: 127, after: 2 * quarterTurn, x: DefaultTrack / 2, y: DefaultTrack / 2, deg: 90},
	}
	start := time.Unix(1000, 0)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChassis()
			c.Place(start, Pose2D{})
			c.Drive(start, tc.left, tc.right)
			pose := c.Pose(start.Add(tc.after))
			require.InDelta(t, tc.x, pose.X, 1e-6)
			require.InDelta(t, tc.y, pose.Y, 1e-6)
			require.InDelta(t, tc.deg, pose.Orientation.Degrees(), 1e-6)
		})
	}
}

func TestChassisSegments(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewChassis()
	c.Place(start, Pose2D{Orientation: AngleFromDegrees(90)})
	c.Drive(start, 127, 127)
	require.True(t, c.Moving())
	c.Drive(start.Add(time.Second), 0, 0)
	require.False(t, c.Moving())
	pose := c.Pose(start.Add(time.Hour))
	require.InDelta(t, 0, pose.X, 1e-9)
	require.InDelta(t, 0.5, pose.Y, 1e-9)
	require.Equal(t, "(0.000, 0.500) 90.0°", pose.String())
	require.Equal(t, Pose2D{}, NewChassis().Pose(start))
}
