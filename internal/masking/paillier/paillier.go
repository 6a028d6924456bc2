// Package paillier implements the Paillier cryptosystem: a probabilistic,
// additively homomorphic public-key scheme. Sums of ciphertexts decrypt to
// sums of plaintexts, and a ciphertext raised to a scalar decrypts to the
// scaled plaintext, so aggregates can be computed without ever decrypting
// individual values.
package paillier

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
)

var one = big.NewInt(1)

// ErrMessageTooLarge is returned when a plaintext does not fit the modulus.
var ErrMessageTooLarge = errors.New("paillier: message out of range")

// ErrCiphertextOutOfRange is returned for malformed ciphertexts.
var ErrCiphertextOutOfRange = errors.New("paillier: ciphertext out of range")

// PublicKey holds the encryption parameters n and the cached n².
type PublicKey struct {
	N        *big.Int
	NSquared *big.Int
}

// PrivateKey adds the decryption trapdoor. lambda = lcm(p-1, q-1) and
// mu = lambda⁻¹ mod n, valid because the scheme uses g = n+1.
type PrivateKey struct {
	PublicKey
	lambda *big.Int
	mu     *big.Int
}

// GenerateKey produces a keypair with an n of the given bit size. Bit sizes
// below 1024 are refused outside of tests; use NewTestKey there.
func GenerateKey(random io.Reader, bits int) (*PrivateKey, error) {
	if bits < 1024 {
		return nil, fmt.Errorf("paillier: key size %d too small", bits)
	}
	return generateKey(random, bits)
}

// NewTestKey generates a deliberately small keypair for tests. Never use the
// result to protect real data.
func NewTestKey(random io.Reader, bits int) (*PrivateKey, error) {
	return generateKey(random, bits)
}

func generateKey(random io.Reader, bits int) (*PrivateKey, error) {
	for {
		p, err := rand.Prime(random, bits/2)
		if err != nil {
			return nil, fmt.Errorf("paillier: generate prime: %w", err)
		}
		q, err := rand.Prime(random, bits/2)
		if err != nil {
			return nil, fmt.Errorf("paillier: generate prime: %w", err)
		}
		if p.Cmp(q) == 0 {
			continue
		}

		n := new(big.Int).Mul(p, q)
		pMinus1 := new(big.Int).Sub(p, one)
		qMinus1 := new(big.Int).Sub(q, one)
		lambda := new(big.Int).Div(
			new(big.Int).Mul(pMinus1, qMinus1),
			new(big.Int).GCD(nil, nil, pMinus1, qMinus1),
		)
		mu := new(big.Int).ModInverse(lambda, n)
		if mu == nil {
			continue
		}

		return &PrivateKey{
			PublicKey: PublicKey{
				N:        n,
				NSquared: new(big.Int).Mul(n, n),
			},
			lambda: lambda,
			mu:     mu,
		}, nil
	}
}

// Fingerprint identifies the key material without revealing it.
func (pk *PublicKey) Fingerprint() string {
	sum := sha256.Sum256(pk.N.Bytes())
	return hex.EncodeToString(sum[:8])
}

// Encrypt computes c = (1+n)^m · rⁿ mod n² with a fresh random r, so equal
// plaintexts yield unequal ciphertexts.
func (pk *PublicKey) Encrypt(random io.Reader, m *big.Int) (*big.Int, error) {
	if m.Sign() < 0 || m.Cmp(pk.N) >= 0 {
		return nil, ErrMessageTooLarge
	}

	r, err := randomCoprime(random, pk.N)
	if err != nil {
		return nil, err
	}

	// (1+n)^m mod n² expands to 1 + m·n mod n², avoiding a full exponentiation.
	gm := new(big.Int).Mod(
		new(big.Int).Add(one, new(big.Int).Mul(m, pk.N)),
		pk.NSquared,
	)
	rn := new(big.Int).Exp(r, pk.N, pk.NSquared)
	c := new(big.Int).Mod(new(big.Int).Mul(gm, rn), pk.NSquared)
	return c, nil
}

// AddCipher multiplies ciphertexts, which adds the underlying plaintexts.
func (pk *PublicKey) AddCipher(c1, c2 *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Mul(c1, c2), pk.NSquared)
}

// MulPlain raises a ciphertext to a plaintext scalar, which multiplies the
// underlying plaintext by that scalar.
func (pk *PublicKey) MulPlain(c *big.Int, k *big.Int) *big.Int {
	return new(big.Int).Exp(c, k, pk.NSquared)
}

// Decrypt recovers m = L(c^lambda mod n²) · mu mod n, with L(u) = (u-1)/n.
func (sk *PrivateKey) Decrypt(c *big.Int) (*big.Int, error) {
	if c.Sign() <= 0 || c.Cmp(sk.NSquared) >= 0 {
		return nil, ErrCiphertextOutOfRange
	}
	u := new(big.Int).Exp(c, sk.lambda, sk.NSquared)
	l := new(big.Int).Div(new(big.Int).Sub(u, one), sk.N)
	return new(big.Int).Mod(new(big.Int).Mul(l, sk.mu), sk.N), nil
}

// EncodeSigned maps a signed integer into the plaintext space, using the top
// half of the modulus for negative values.
func (pk *PublicKey) EncodeSigned(v *big.Int) *big.Int {
	if v.Sign() >= 0 {
		return new(big.Int).Set(v)
	}
	return new(big.Int).Add(pk.N, v)
}

// DecodeSigned inverts EncodeSigned: plaintexts above n/2 are negative.
func (pk *PublicKey) DecodeSigned(m *big.Int) *big.Int {
	half := new(big.Int).Rsh(pk.N, 1)
	if m.Cmp(half) > 0 {
		return new(big.Int).Sub(m, pk.N)
	}
	return new(big.Int).Set(m)
}

func randomCoprime(random io.Reader, n *big.Int) (*big.Int, error) {
	for {
		r, err := rand.Int(random, n)
		if err != nil {
			return nil, fmt.Errorf("paillier: random nonce: %w", err)
		}
		if r.Sign() == 0 {
			continue
		}
		if new(big.Int).GCD(nil, nil, r, n).Cmp(one) == 0 {
			return r, nil
		}
	}
}
