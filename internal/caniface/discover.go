// Package caniface discovers CAN-family network interfaces on the host
// and caches the result for LIST_CAN_INTERFACES and scheduling-time
// validation.
package caniface

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cansrv/cansrv/internal/logger"
	"github.com/cansrv/cansrv/internal/metrics"
)

const sysClassNet = "/sys/class/net"

// arphrdCAN is ARPHRD_CAN from linux/if_arp.h: the interface family value
// a SocketCAN device reports in /sys/class/net/<iface>/type.
const arphrdCAN = 280

var namePattern = regexp.MustCompile(`^u?(v)?can\d+$`)

// Cache holds the most recently discovered set of CAN interfaces, guarded
// by a single RWMutex. LIST_CAN_INTERFACES refreshes it before replying;
// scheduling commands validate against the last refresh without forcing
// a new scan on every SEND_TASK/CANSEND.
type Cache struct {
	mu         sync.RWMutex
	interfaces []string
}

func NewCache() *Cache {
	return &Cache{}
}

// Refresh rescans the host and replaces the cached interface list.
func (c *Cache) Refresh() []string {
	found := discover()

	c.mu.Lock()
	c.interfaces = found
	c.mu.Unlock()

	metrics.SetCANInterfacesAvailable(float64(len(found)))
	return found
}

// List returns the interfaces from the last Refresh, without rescanning.
func (c *Cache) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.interfaces))
	copy(out, c.interfaces)
	return out
}

// Set overwrites the cached interface list directly, bypassing a sysfs
// scan. Used by tests and by callers seeding a known interface set.
func (c *Cache) Set(ifaces []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interfaces = append([]string(nil), ifaces...)
}

// Contains reports whether iface was present as of the last Refresh.
func (c *Cache) Contains(iface string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, known := range c.interfaces {
		if known == iface {
			return true
		}
	}
	return false
}

// discover scans /sys/class/net for CAN-family interfaces. It prefers the
// sysfs ARPHRD_CAN type probe over a name-pattern allow-list fallback,
// since Go's net package exposes no interface family the way a raw
// SocketCAN ioctl probe would.
func discover() []string {
	entries, err := os.ReadDir(sysClassNet)
	if err != nil {
		logger.Error().Err(err).Str("path", sysClassNet).Msg("failed to read sysfs net directory")
		return nil
	}

	var found []string
	for _, entry := range entries {
		name := entry.Name()

		if isCANByType(name) {
			found = append(found, name)
			continue
		}

		if namePattern.MatchString(name) {
			found = append(found, name)
		}
	}

	sort.Strings(found)
	return found
}

// isCANByType reads /sys/class/net/<name>/type and reports whether it
// equals ARPHRD_CAN.
func isCANByType(name string) bool {
	typePath := filepath.Join(sysClassNet, name, "type")
	data, err := os.ReadFile(typePath)
	if err != nil {
		return false
	}

	typ, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}

	return typ == arphrdCAN
}
