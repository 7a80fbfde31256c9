package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFile = "agentchat.lock"

// LockInstance records this process as the owner of dataDir
// Content: PID of the running instance
func LockInstance(dataDir string) error {
	lockPath := filepath.Join(dataDir, lockFile)
	return os.WriteFile(lockPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0600)
}

// UnlockInstance removes the instance lock
func UnlockInstance(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, lockFile))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CheckInstanceLock reports whether another live process holds dataDir.
// Stale or unreadable lock files are removed.
func CheckInstanceLock(dataDir string) (bool, int, error) {
	lockPath := filepath.Join(dataDir, lockFile)

	data, err := os.ReadFile(lockPath)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil || pid <= 0 {
		_ = os.Remove(lockPath)
		return false, 0, nil
	}

	if pid == os.Getpid() {
		return false, 0, nil
	}

	if !processAlive(pid) {
		_ = os.Remove(lockPath)
		return false, 0, nil
	}

	return true, pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks existence without delivering anything
	return proc.Signal(syscall.Signal(0)) == nil
}
