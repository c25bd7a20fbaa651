package sshutil

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/nekowatch/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// target is where a credential actually points once ~/.ssh/config is applied.
type target struct {
	hostname     string
	port         string
	user         string
	identityFile string

	// encryptedKeys are local keys skipped for lack of a passphrase.
	encryptedKeys []string
}

func (t *target) address() string {
	return net.JoinHostPort(t.hostname, t.port)
}

func resolveTarget(cred Credential) *target {
	t := &target{hostname: cred.Host, port: "22", user: os.Getenv("USER")}
	if t.user == "" {
		t.user = "root"
	}

	if cfg := loadSSHConfig(filepath.Join(homeDir(), ".ssh", "config")); cfg != nil {
		get := func(key string) string {
			v, _ := cfg.Get(cred.Host, key)
			return v
		}
		if v := get("HostName"); v != "" {
			t.hostname = v
		}
		if v := get("Port"); v != "" {
			t.port = v
		}
		if v := get("User"); v != "" {
			t.user = v
		}
		if v := get("IdentityFile"); v != "" {
			t.identityFile = expandHome(v)
		}
	}

	if cred.Port > 0 {
		t.port = strconv.Itoa(cred.Port)
	}
	if cred.Username != "" {
		t.user = cred.Username
	}
	return t
}

// loadSSHConfig parses the config up to its first Match block, which
// ssh_config cannot decode. A missing or broken file yields nil.
func loadSSHConfig(path string) *ssh_config.Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(beforeMatch(raw)))
	if err != nil {
		return nil
	}
	return cfg
}

func beforeMatch(raw []byte) []byte {
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			break
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// clientConfig picks auth methods: the credential's key and password when
// present, otherwise the local agent and key files.
func clientConfig(cred Credential, t *target, opts Options, timeout time.Duration) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	if cred.PrivateKey != "" {
		var signer ssh.Signer
		var err error
		if cred.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(cred.PrivateKey), []byte(cred.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey([]byte(cred.PrivateKey))
		}
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				fmt.Sprintf("Private key for '%s' couldn't be parsed", cred.Host),
				"Check the key is PEM/OpenSSH encoded and the passphrase matches.")
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if pw := cred.Password; pw != "" {
		methods = append(methods, ssh.Password(pw),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = pw
				}
				return answers, nil
			}))
	}

	if len(methods) == 0 {
		methods = localAuth(t)
	}
	if len(methods) == 0 {
		if len(t.encryptedKeys) > 0 {
			return nil, errors.New(errors.ErrSSH,
				"Only passphrase-protected keys found: "+strings.Join(t.encryptedKeys, ", "),
				"Load them into the agent: ssh-add "+strings.Join(t.encryptedKeys, " "))
		}
		return nil, errors.New(errors.ErrSSH,
			fmt.Sprintf("No way to authenticate to '%s'", cred.Host),
			"Set a password or private key on the host, or load a key: ssh-add")
	}

	hostKeys := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via ssh.strict_host_key_checking
	if opts.StrictHostKeyChecking {
		path := opts.KnownHosts
		if path == "" {
			path = filepath.Join(homeDir(), ".ssh", "known_hosts")
		}
		cb, err := knownHostsCallback(path)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Can't load known_hosts at "+path, "Fix or remove the file")
		}
		hostKeys = cb
	}

	return &ssh.ClientConfig{
		User:            t.user,
		Auth:            methods,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}, nil
}

// localAuth gathers the agent plus any readable unencrypted key files.
func localAuth(t *target) []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if m := agentAuth(); m != nil {
		methods = append(methods, m)
	}

	paths := []string{t.identityFile}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		if p := filepath.Join(homeDir(), ".ssh", name); p != t.identityFile {
			paths = append(paths, p)
		}
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		signer, encrypted, err := readKeyFile(p)
		switch {
		case encrypted:
			t.encryptedKeys = append(t.encryptedKeys, p)
		case err == nil:
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}
	return methods
}

// readKeyFile parses a private key file, reporting separately whether it
// needs a passphrase.
func readKeyFile(path string) (ssh.Signer, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		encrypted := stderrors.As(err, &missing) || bytes.Contains(raw, []byte("ENCRYPTED"))
		return nil, encrypted, err
	}
	return signer, false, nil
}

var (
	agentOnce   sync.Once
	agentClient agent.ExtendedAgent
)

// agentAuth uses $SSH_AUTH_SOCK when the agent holds at least one key. An
// empty agent placed first makes some servers drop the connection.
func agentAuth() ssh.AuthMethod {
	agentOnce.Do(func() {
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return
		}
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return
		}
		agentClient = agent.NewClient(conn)
	})
	if agentClient == nil {
		return nil
	}
	if signers, err := agentClient.Signers(); err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir(), rest)
	}
	return path
}

// hostKeyMismatch is returned by the known_hosts callback when the server
// presents a key other than the recorded one.
type hostKeyMismatch struct {
	host       string
	got        string
	want       []string
	knownHosts string
}

func (e *hostKeyMismatch) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s", e.host, e.got)
}

func (e *hostKeyMismatch) suggestion() string {
	host := e.host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	want := "unknown"
	if len(e.want) > 0 {
		want = strings.Join(e.want, ", ")
	}
	return fmt.Sprintf("Recorded key types: %s. If the host was rebuilt, drop the old entry:\n  ssh-keygen -f %s -R %s",
		want, e.knownHosts, host)
}

// knownHostsCallback verifies against path, creating an empty file first so
// a fresh install can start strict.
func knownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, err
		}
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, err
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := cb(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			m := &hostKeyMismatch{host: hostname, got: key.Type(), knownHosts: path}
			for _, k := range keyErr.Want {
				m.want = append(m.want, k.Key.Type())
			}
			return m
		}
		return err
	}, nil
}

// dialHints maps substrings of TCP dial errors to advice.
var dialHints = []struct{ match, hint string }{
	{"connection refused", "Nothing is listening on the SSH port; check sshd is running"},
	{"no route to host", "No route to the host; check the network"},
	{"network is unreachable", "No route to the host; check the network"},
	{"timeout", "Timed out; the host may be down or firewalled"},
}

func dialHint(err error, fallback string) string {
	msg := err.Error()
	for _, h := range dialHints {
		if strings.Contains(msg, h.match) {
			return h.hint
		}
	}
	return fallback
}

func handshakeHint(err error, encrypted []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(encrypted) > 0 {
			return "Your keys are passphrase-protected; load them: ssh-add " + strings.Join(encrypted, " ")
		}
		return "Authentication failed; check the host's password or private key"
	case strings.Contains(msg, "host key"):
		return "Host key rejected; connect once by hand with ssh to inspect it"
	}
	return "Check the host's sshd logs"
}
