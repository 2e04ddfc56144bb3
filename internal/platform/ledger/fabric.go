package ledger

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/hash"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Config holds everything needed to reach one chaincode on one channel.
type Config struct {
	MSPID         string
	Channel       string
	Chaincode     string
	PeerEndpoint  string
	PeerHostAlias string
	TLSCertPath   string
	CertPath      string
	// KeyDir is the keystore directory; its first file is the private key.
	KeyDir string

	EvaluateTimeout     time.Duration
	EndorseTimeout      time.Duration
	SubmitTimeout       time.Duration
	CommitStatusTimeout time.Duration
}

// Gateway is a Ledger backed by a Fabric Gateway connection. It is created
// once per process and shared by all requests until Close.
type Gateway struct {
	conn     *grpc.ClientConn
	gw       *client.Gateway
	contract *client.Contract
	logger   zerolog.Logger
}

// Connect dials the peer and opens a gateway session for cfg.Chaincode.
func Connect(cfg Config, logger zerolog.Logger) (*Gateway, error) {
	tlsCert, err := loadCertificate(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("load peer TLS certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(tlsCert)
	creds := credentials.NewClientTLSFromCert(pool, cfg.PeerHostAlias)

	conn, err := grpc.NewClient(cfg.PeerEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", cfg.PeerEndpoint, err)
	}

	id, err := newIdentity(cfg.MSPID, cfg.CertPath)
	if err != nil {
		conn.Close()
		return nil, err
	}
	sign, err := newSign(cfg.KeyDir)
	if err != nil {
		conn.Close()
		return nil, err
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithHash(hash.SHA256),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(cfg.EvaluateTimeout),
		client.WithEndorseTimeout(cfg.EndorseTimeout),
		client.WithSubmitTimeout(cfg.SubmitTimeout),
		client.WithCommitStatusTimeout(cfg.CommitStatusTimeout),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect gateway: %w", err)
	}

	contract := gw.GetNetwork(cfg.Channel).GetContract(cfg.Chaincode)
	logger.Info().
		Str("peer", cfg.PeerEndpoint).
		Str("msp_id", cfg.MSPID).
		Str("channel", cfg.Channel).
		Str("chaincode", cfg.Chaincode).
		Msg("connected to ledger gateway")

	return &Gateway{conn: conn, gw: gw, contract: contract, logger: logger}, nil
}

// Submit endorses, orders and waits for commit of a transaction.
func (g *Gateway) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	result, err := g.contract.SubmitWithContext(ctx, name, client.WithArguments(args...))
	if err != nil {
		return nil, classify(StageSubmit, name, err)
	}
	return result, nil
}

// Evaluate runs a query transaction on a single peer.
func (g *Gateway) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	result, err := g.contract.EvaluateWithContext(ctx, name, client.WithArguments(args...))
	if err != nil {
		return nil, classify(StageEvaluate, name, err)
	}
	return result, nil
}

// Close ends the gateway session and the underlying connection.
func (g *Gateway) Close() error {
	gwErr := g.gw.Close()
	connErr := g.conn.Close()
	g.logger.Info().Msg("ledger gateway closed")
	return errors.Join(gwErr, connErr)
}

// classify turns the Fabric client error types into a stage-tagged *Error.
func classify(fallback Stage, name string, err error) error {
	var (
		endorseErr      *client.EndorseError
		submitErr       *client.SubmitError
		commitStatusErr *client.CommitStatusError
		commitErr       *client.CommitError
	)

	stage, txID, code := fallback, "", ""
	switch {
	case errors.As(err, &endorseErr):
		stage, txID = StageEndorse, endorseErr.TransactionID
	case errors.As(err, &submitErr):
		stage, txID = StageSubmit, submitErr.TransactionID
	case errors.As(err, &commitStatusErr):
		stage, txID = StageCommitStatus, commitStatusErr.TransactionID
	case errors.As(err, &commitErr):
		// Committed but invalidated by validation: reported like a failed
		// commit status, with the validation code attached.
		stage, txID, code = StageCommitStatus, commitErr.TransactionID, commitErr.Code.String()
	}

	wrapped := newError(stage, name, err)
	wrapped.TxID = txID
	if code != "" {
		wrapped.Code = code
	}
	return wrapped
}

func loadCertificate(path string) (*x509.Certificate, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate %s: %w", path, err)
	}
	return identity.CertificateFromPEM(pem)
}

func newIdentity(mspID, certPath string) (*identity.X509Identity, error) {
	cert, err := loadCertificate(certPath)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	id, err := identity.NewX509Identity(mspID, cert)
	if err != nil {
		return nil, fmt.Errorf("create client identity: %w", err)
	}
	return id, nil
}

func newSign(keyDir string) (identity.Sign, error) {
	entries, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("read keystore %s: %w", keyDir, err)
	}
	var keyPath string
	for _, entry := range entries {
		if !entry.IsDir() {
			keyPath = filepath.Join(keyDir, entry.Name())
			break
		}
	}
	if keyPath == "" {
		return nil, fmt.Errorf("keystore %s contains no private key", keyDir)
	}

	pem, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := identity.PrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return sign, nil
}
