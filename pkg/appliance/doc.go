// Package appliance keeps the entry describing this server instance: its
// heartbeat, the persistence backend in use and the cache configuration the
// other services are built with.
package appliance
