// Package msgs defines the protobuf messages exchanged between a bridge
// and its clients.
//
// A Frame carries one link packet in either direction. Stats and Log are
// published by the bridge for monitoring.
package msgs
