package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves an ID of the machine, protected with the application
// name so it can be published. It returns "" if unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID("polylink")
	if err != nil {
		glog.Warningf("machine ID unavailable: %v", err)
		return ""
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
