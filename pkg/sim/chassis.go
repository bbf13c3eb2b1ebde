package sim

import (
	"math"
	"sync"
	"time"
)

// Chassis defaults.
const (
	DefaultMaxSpeed = 0.5
	DefaultTrack    = 0.15
	maxMotorSpeed   = 127
)

// Chassis is a differential drive driven by a left and a right motor.
// The pose is estimated from the time motor speeds last changed.
type Chassis struct {
	// MaxSpeed is the wheel speed in m/s at full motor speed.
	MaxSpeed float64
	// Track is the distance between the wheels in meters.
	Track float64

	startPose   Pose2D
	startTime   time.Time
	left, right float64
	lock        sync.Mutex
}

// NewChassis creates a Chassis at origin with default dimensions.
func NewChassis() *Chassis {
	return &Chassis{MaxSpeed: DefaultMaxSpeed, Track: DefaultTrack}
}

func (c *Chassis) wheelSpeed(motor int8) float64 {
	return float64(motor) * c.MaxSpeed / maxMotorSpeed
}

// Drive changes motor speeds at now.
func (c *Chassis) Drive(now time.Time, left, right int8) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.startPose = c.estimate(now)
	c.startTime = now
	c.left, c.right = c.wheelSpeed(left), c.wheelSpeed(right)
}

// Place moves the chassis to pose and stops it.
func (c *Chassis) Place(now time.Time, pose Pose2D) {
	c.lock.Lock()
	c.startPose, c.startTime = pose, now
	c.left, c.right = 0, 0
	c.lock.Unlock()
}

// Pose estimates the pose at now.
func (c *Chassis) Pose(now time.Time) Pose2D {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.estimate(now)
}

// Moving tells whether any wheel turns.
func (c *Chassis) Moving() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.left != 0 || c.right != 0
}

func (c *Chassis) estimate(now time.Time) Pose2D {
	pose := c.startPose
	if c.startTime.IsZero() || !now.After(c.startTime) {
		return pose
	}
	secs := now.Sub(c.startTime).Seconds()
	speed := (c.left + c.right) / 2
	if c.left == c.right || c.Track <= 0 {
		pose.Pos2D.OffsetBy(pose.Orientation.Project(speed * secs))
		return pose
	}
	omega := (c.right - c.left) / c.Track
	turned := omega * secs
	radius := speed / omega
	theta := float64(pose.Orientation)
	pose.X += radius * (math.Sin(theta+turned) - math.Sin(theta))
	pose.Y -= radius * (math.Cos(theta+turned) - math.Cos(theta))
	pose.Orientation = pose.Orientation.AddRadians(turned)
	return pose
}
