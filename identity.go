package rweb

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/nacl/box"
)

// Identity is the persistent key material backing a single local
// destination for the lifetime of a process, as required by the Mesh
// Adapter contract in spec.md §6 ("creatable persistent identity
// serialized to a file"). It carries an Ed25519 keypair and an X25519
// (nacl/box) keypair; both public keys feed DestinationHash. Nothing in
// this repository signs announces or encrypts messages with these keys.
type Identity struct {
	SignPub   ed25519.PublicKey
	SignPriv  ed25519.PrivateKey
	BoxPub    *[32]byte
	BoxPriv   *[32]byte
}

// identityFile is the on-disk name used under a storage root, matching
// spec.md §6's filesystem layout.
const identityFile = "identity"

// onDiskIdentity is the msgpack-serialized form written to identityFile.
type onDiskIdentity struct {
	SignPriv []byte `msgpack:"sign_priv"`
	BoxPriv  []byte `msgpack:"box_priv"`
}

// LoadOrCreateIdentity loads the identity serialized under storageRoot,
// or generates and persists a new one if none exists. A failure here is
// the ErrSubstrateInit case: fatal at startup.
func LoadOrCreateIdentity(storageRoot string) (*Identity, error) {
	path := storageRoot + string(os.PathSeparator) + identityFile
	if b, err := os.ReadFile(path); err == nil {
		return decodeIdentity(b)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: reading identity: %v", ErrSubstrateInit, err)
	}

	id, err := newIdentity()
	if err != nil {
		return nil, fmt.Errorf("%w: generating identity: %v", ErrSubstrateInit, err)
	}
	if err := id.save(path); err != nil {
		return nil, fmt.Errorf("%w: persisting identity: %v", ErrSubstrateInit, err)
	}
	return id, nil
}

func newIdentity() (*Identity, error) {
	signPub, signPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	boxPub, boxPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Identity{
		SignPub:  signPub,
		SignPriv: signPriv,
		BoxPub:   boxPub,
		BoxPriv:  boxPriv,
	}, nil
}

func decodeIdentity(b []byte) (*Identity, error) {
	var od onDiskIdentity
	if err := msgpackUnmarshal(b, &od); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubstrateInit, err)
	}
	if len(od.SignPriv) != ed25519.PrivateKeySize || len(od.BoxPriv) != 32 {
		return nil, fmt.Errorf("%w: corrupt identity file", ErrSubstrateInit)
	}
	signPriv := ed25519.PrivateKey(od.SignPriv)
	var boxPriv [32]byte
	copy(boxPriv[:], od.BoxPriv)
	boxPub := new([32]byte)
	curve25519.ScalarBaseMult(boxPub, &boxPriv)
	signPub := signPriv.Public().(ed25519.PublicKey)
	return &Identity{SignPub: signPub, SignPriv: signPriv, BoxPub: boxPub, BoxPriv: &boxPriv}, nil
}

func (id *Identity) save(path string) error {
	od := onDiskIdentity{
		SignPriv: []byte(id.SignPriv),
		BoxPriv:  id.BoxPriv[:],
	}
	b, err := msgpackMarshal(od)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// DestinationHash derives the canonical DestinationHash for id: the
// leading DestinationHashSize bytes of the SHA-256 digest over the
// concatenated signing and encryption public keys, mirroring the
// substrate's own hash-of-public-key derivation.
func (id *Identity) DestinationHash() DestinationHash {
	sum := sha256.New()
	sum.Write(id.SignPub)
	sum.Write(id.BoxPub[:])
	digest := sum.Sum(nil)
	var h DestinationHash
	copy(h[:], digest[:DestinationHashSize])
	return h
}
