package urclient

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// programExt is the controller's program file extension.
const programExt = ".urp"

// dirLister is the slice of the SFTP client the program scan needs.
type dirLister interface {
	ReadDir(path string) ([]os.FileInfo, error)
}

// ListPrograms lists the program files stored on the controller, fetched
// over the SFTP side channel. Credential variants are tried in order; the
// first one that authenticates and can read any candidate directory decides
// the result. An empty result from a readable directory is a valid answer:
// the controller simply has no programs. ErrNoPrograms is returned only
// when no candidate directory was readable under any credential.
func (c *Client) ListPrograms() ([]string, error) {
	c.mu.Lock()
	host := c.host
	c.mu.Unlock()

	if host == "" {
		return nil, ErrNotConnected
	}

	addr := c.addr(host, c.cfg.sshPort)

	var lastErr error
	for _, cred := range c.cfg.credentials {
		names, scanned, err := c.listProgramsAs(addr, cred)
		if err != nil {
			c.logger.Debug("program listing attempt failed", "user", cred.User, "error", err)
			lastErr = err
			continue
		}

		if scanned {
			return names, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("list programs: %w", lastErr)
	}

	return nil, ErrNoPrograms
}

func (c *Client) listProgramsAs(addr string, cred Credential) ([]string, bool, error) {
	sshCfg := &ssh.ClientConfig{
		User:            cred.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cred.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // controllers have no provisioned host keys
		Timeout:         c.cfg.channelTimeout,
	}

	sshConn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, false, fmt.Errorf("ssh dial: %w", err)
	}
	defer sshConn.Close()

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		return nil, false, fmt.Errorf("sftp session: %w", err)
	}
	defer client.Close()

	names, scanned := c.collectPrograms(client)

	return names, scanned, nil
}

// collectPrograms scans each candidate directory for program files and
// returns the de-duplicated, sorted names. scanned reports whether at least
// one directory was readable, so a readable-but-empty controller is not
// confused with an unreachable one.
func (c *Client) collectPrograms(fs dirLister) (names []string, scanned bool) {
	seen := make(map[string]struct{})
	names = make([]string, 0, 16)

	for _, dir := range c.cfg.programDirs {
		entries, err := fs.ReadDir(dir)
		if err != nil {
			c.logger.Debug("program directory not readable", "dir", dir, "error", err)
			continue
		}
		scanned = true

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			name := entry.Name()
			if !strings.EqualFold(path.Ext(name), programExt) {
				continue
			}

			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, scanned
}
