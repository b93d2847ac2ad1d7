package nav

import "github.com/go-gl/mathgl/mgl64"

// Result is the outcome code delivered to a path request's callback.
type Result uint8

const (
	Success Result = iota
	StartNodeInvalid
	StartNodeBlocked
	EndNodeInvalid
	EndNodeBlocked
	NoPathExists
	PathToSelf
	VolumeNotReady
	RequesterInvalid
	UnknownError
)

var resultNames = [...]string{
	Success:          "Success",
	StartNodeInvalid: "StartNodeInvalid",
	StartNodeBlocked: "StartNodeBlocked",
	EndNodeInvalid:   "EndNodeInvalid",
	EndNodeBlocked:   "EndNodeBlocked",
	NoPathExists:     "NoPathExists",
	PathToSelf:       "PathToSelf",
	VolumeNotReady:   "VolumeNotReady",
	RequesterInvalid: "RequesterInvalid",
	UnknownError:     "UnknownError",
}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "UnknownError"
}

// IsCompleted reports whether the search itself ran to an answer.
// NoPathExists counts: the search finished, the goal was just unreachable.
func (r Result) IsCompleted() bool {
	return r == Success || r == PathToSelf || r == NoPathExists
}

// PathResult is what a finished request carries.
type PathResult struct {
	Result Result
	Points []mgl64.Vec3 // world-space cell centers, start to goal inclusive
	Long   bool         // more points than the volume's long path threshold
}
