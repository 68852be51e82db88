// Package sysinfo collects a small host summary for scan reports. Every
// field is best-effort; a collector failure just leaves its field empty.
package sysinfo

import (
	"downguard/logger"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
)

type Summary struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	UptimeSec       uint64 `json:"uptime_sec"`

	// Free space on the volume holding the watched folder, so a report can
	// explain a download that failed halfway.
	WatchFolderFreeBytes uint64 `json:"watch_folder_free_bytes,omitempty"`
}

// Collect gathers the host summary. watchFolder may be empty, in which case
// the free-space field stays zero.
func Collect(watchFolder string) *Summary {
	s := &Summary{}

	if info, err := host.Info(); err == nil {
		s.Hostname = info.Hostname
		s.OS = info.OS
		s.Platform = info.Platform
		s.PlatformVersion = info.PlatformVersion
		s.UptimeSec = info.Uptime
	} else {
		logger.Warnf("Could not read host information: %v", err)
	}

	if watchFolder != "" {
		if usage, err := disk.Usage(watchFolder); err == nil {
			s.WatchFolderFreeBytes = usage.Free
		} else {
			logger.Debugf("Could not read disk usage for %s: %v", watchFolder, err)
		}
	}

	return s
}
