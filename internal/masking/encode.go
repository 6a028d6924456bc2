package masking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"math/big"

	"veil/internal/domain"
	"veil/internal/masking/paillier"
)

// encodeScale fixes the decimal precision carried into the plaintext space.
// Values are encoded as round(v * encodeScale) before encryption.
const encodeScale = 100

// Encoder is the Level-1 strategy: Paillier encryption of numeric values.
// Encryption is probabilistic, so repeated encodings of the same value are
// unlinkable, while sums and scalar multiples can still be computed on the
// ciphertexts. The private key lives with the Decrypter, not here.
type Encoder struct {
	pub    *paillier.PublicKey
	random io.Reader
}

func NewEncoder(pub *paillier.PublicKey) *Encoder {
	return &Encoder{pub: pub, random: rand.Reader}
}

// Apply encodes a numeric attribute. Non-numeric attributes are rejected:
// this strategy is defined only for numbers, and downgrading is the
// orchestrator's call.
func (e *Encoder) Apply(attr domain.Attribute) (domain.MaskedValue, error) {
	if attr.Kind != domain.ValueNumeric {
		return domain.MaskedValue{}, &domain.TypeMismatchError{
			Strategy:   StrategyEncode.String(),
			EntityType: attr.EntityType,
		}
	}

	m := big.NewInt(int64(math.Round(attr.Number * encodeScale)))
	c, err := e.pub.Encrypt(e.random, e.pub.EncodeSigned(m))
	if err != nil {
		return domain.MaskedValue{}, fmt.Errorf("encode attribute: %w", err)
	}

	return domain.MaskedValue{
		Kind:       domain.ValueText,
		Ciphertext: hex.EncodeToString(c.Bytes()),
		KeyID:      e.pub.Fingerprint(),
	}, nil
}

// AddCiphertexts combines two encodings homomorphically; the result decrypts
// to the sum of the originals.
func (e *Encoder) AddCiphertexts(c1Hex, c2Hex string) (string, error) {
	c1, err := parseCiphertext(c1Hex)
	if err != nil {
		return "", err
	}
	c2, err := parseCiphertext(c2Hex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(e.pub.AddCipher(c1, c2).Bytes()), nil
}

// Decrypter recovers Level-1 encodings. It is constructed only where the
// private key is authorized to live; the masking path never sees it.
type Decrypter struct {
	key *paillier.PrivateKey
}

func NewDecrypter(key *paillier.PrivateKey) *Decrypter {
	return &Decrypter{key: key}
}

// KeyID reports the fingerprint of the held key.
func (d *Decrypter) KeyID() string {
	return d.key.Fingerprint()
}

// Decrypt recovers the original numeric value from a ciphertext produced
// under the matching public key.
func (d *Decrypter) Decrypt(cipherHex string) (float64, error) {
	c, err := parseCiphertext(cipherHex)
	if err != nil {
		return 0, err
	}
	m, err := d.key.Decrypt(c)
	if err != nil {
		return 0, fmt.Errorf("decrypt ciphertext: %w", err)
	}
	signed := d.key.DecodeSigned(m)
	f, _ := new(big.Float).SetInt(signed).Float64()
	return f / encodeScale, nil
}

func parseCiphertext(cipherHex string) (*big.Int, error) {
	raw, err := hex.DecodeString(cipherHex)
	if err != nil {
		return nil, fmt.Errorf("malformed ciphertext: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}
