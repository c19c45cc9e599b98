// Package verifierd implements the verifier's agent: it retrieves a
// router's serialized accumulator over the digest transport, either by
// dialing the router directly or by tunneling through SSH to a router
// whose TCP port isn't publicly reachable, then dispatches on the wire
// kind tag and validates the result against a candidate log.
package verifierd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/ygina/subset-digest/pkg/accumulator"
)

// FetchMode selects the digest transport's single request byte:
// Peek leaves the router's accumulator state untouched, PeekAndReset
// tells the router to reset after streaming the bytes.
type FetchMode byte

const (
	Peek         FetchMode = 0
	PeekAndReset FetchMode = 1
)

// SSHTunnel describes how to reach a router whose digest port is only
// bound to localhost on the far side, requiring an SSH hop.
type SSHTunnel struct {
	Address        string // host[:22] to SSH into
	Username       string
	PrivateKeyPath string
}

// FetchDigest dials addr directly and returns the router's serialized
// accumulator bytes.
func FetchDigest(ctx context.Context, addr string, mode FetchMode) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("verifierd: dial %s: %w", addr, err)
	}
	return readDigest(conn, mode)
}

// FetchDigestViaSSH reaches a router at remoteAddr (typically
// "127.0.0.1:PORT" from the far side's perspective) by establishing an
// SSH session to tunnel.Address and port-forwarding through it via
// ssh.Client.Dial.
func FetchDigestViaSSH(ctx context.Context, tunnel SSHTunnel, remoteAddr string, mode FetchMode) ([]byte, error) {
	key, err := os.ReadFile(tunnel.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("verifierd: reading private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("verifierd: parsing private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User:            tunnel.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // router is on a trusted LAN, not the public internet
		Timeout:         10 * time.Second,
	}

	sshAddr := tunnel.Address
	if _, _, err := net.SplitHostPort(sshAddr); err != nil {
		sshAddr = net.JoinHostPort(sshAddr, "22")
	}

	client, err := ssh.Dial("tcp", sshAddr, config)
	if err != nil {
		return nil, fmt.Errorf("verifierd: ssh dial %s: %w", sshAddr, err)
	}
	defer client.Close()

	conn, err := client.Dial("tcp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("verifierd: ssh tunnel dial %s: %w", remoteAddr, err)
	}
	return readDigest(conn, mode)
}

func readDigest(conn net.Conn, mode FetchMode) ([]byte, error) {
	defer conn.Close()
	if _, err := conn.Write([]byte{byte(mode)}); err != nil {
		return nil, fmt.Errorf("verifierd: writing request byte: %w", err)
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("verifierd: reading digest: %w", err)
	}
	return data, nil
}

// DecodeAndValidate dispatches digestBytes to the matching accumulator
// kind and validates it against candidate, returning the outcome, the
// dropped indices into candidate (when the outcome has a concrete
// witness), and the accumulator's running element count.
func DecodeAndValidate(digestBytes []byte, candidate [][]byte, root accumulator.RootOracle, ilp accumulator.ILPOracle) (accumulator.ValidationResult, []int, uint64, error) {
	acc, err := accumulator.FromBytes(digestBytes, root, ilp)
	if err != nil {
		return accumulator.Invalid, nil, 0, fmt.Errorf("verifierd: decoding accumulator: %w", err)
	}
	result, dropped := acc.Validate(candidate)
	return result, dropped, acc.Total(), nil
}
