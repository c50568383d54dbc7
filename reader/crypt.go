package reader

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"slices"

	"golang.org/x/text/secure/precis"
)

// Standard PDF padding (section 7.6.3.3 of ISO 32000-1)
var pdfPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

type cryptMethod int

const (
	methodRC4 cryptMethod = iota
	methodAESV2
	methodAESV3
	methodIdentity
)

// securityHandler implements the standard security handler for revisions
// 2 to 6.
type securityHandler struct {
	version         int    // /V: 1=RC4 40-bit, 2=RC4 >40-bit, 4=crypt filters, 5=AES-256
	revision        int    // /R
	keyLength       int    // in bytes
	ownerHash       []byte // /O
	userHash        []byte // /U
	ownerKey        []byte // /OE, revisions 5 and 6
	userKey         []byte // /UE, revisions 5 and 6
	permissions     int32  // /P
	fileID          []byte // first element of trailer /ID
	encryptMetadata bool
	method          cryptMethod

	key []byte // file key, set once a password authenticates
}

// newSecurityHandler reads the /Encrypt dictionary. enc must be resolved
// without decryption.
func newSecurityHandler(enc Dict, trailer Dict) (*securityHandler, error) {
	if f := enc.GetName("Filter"); f != "" && f != "Standard" {
		return nil, fmt.Errorf("%w: security handler %s", ErrUnsupportedEncryption, f)
	}

	h := &securityHandler{
		version:         0,
		revision:        2,
		keyLength:       5,
		encryptMetadata: true,
	}
	if v, ok := enc.GetInt("V"); ok {
		h.version = int(v)
	}
	if r, ok := enc.GetInt("R"); ok {
		h.revision = int(r)
	}
	if p, ok := enc.GetInt("P"); ok {
		h.permissions = int32(p)
	}
	h.ownerHash, _ = enc.GetString("O")
	h.userHash, _ = enc.GetString("U")
	if em, ok := enc["EncryptMetadata"].(Boolean); ok {
		h.encryptMetadata = bool(em)
	}
	if ids := trailer.GetArray("ID"); len(ids) > 0 {
		if s, ok := ids[0].(String); ok {
			h.fileID = s.Value
		}
	}

	switch h.version {
	case 0, 1:
	case 2:
		if length, ok := enc.GetInt("Length"); ok {
			h.keyLength = int(length) / 8
		}
	case 4, 5:
		h.keyLength = 16
		if h.version == 5 {
			h.keyLength = 32
		}
		method, err := cryptFilterMethod(enc)
		if err != nil {
			return nil, err
		}
		h.method = method
	default:
		return nil, fmt.Errorf("%w: V=%d R=%d", ErrUnsupportedEncryption, h.version, h.revision)
	}

	if h.version == 5 {
		if err := h.checkAES256(enc); err != nil {
			return nil, err
		}
		return h, nil
	}
	if h.revision < 2 || h.revision > 4 {
		return nil, fmt.Errorf("%w: R=%d", ErrUnsupportedEncryption, h.revision)
	}
	if h.keyLength < 5 || h.keyLength > 16 {
		return nil, fmt.Errorf("%w: key length %d bytes", ErrUnsupportedEncryption, h.keyLength)
	}
	if len(h.ownerHash) < 32 || len(h.userHash) < 32 {
		return nil, fmt.Errorf("reader: malformed /Encrypt: /O or /U too short")
	}
	return h, nil
}

// cryptFilterMethod resolves the method of the default stream filter.
func cryptFilterMethod(enc Dict) (cryptMethod, error) {
	name := enc.GetName("StmF")
	if name == "" || name == "Identity" {
		return methodIdentity, nil
	}
	cf := enc.GetDict("CF").GetDict(name)
	switch cfm := cf.GetName("CFM"); cfm {
	case "V2":
		return methodRC4, nil
	case "AESV2":
		return methodAESV2, nil
	case "AESV3":
		return methodAESV3, nil
	case "None":
		return methodIdentity, nil
	default:
		return 0, fmt.Errorf("%w: crypt filter method %q", ErrUnsupportedEncryption, cfm)
	}
}

// authenticate tries password first as the user password and then as the
// owner password. It records the file key on success.
func (h *securityHandler) authenticate(password string) bool {
	if h.version == 5 {
		return h.authenticateAES256(password)
	}
	key := h.computeKey([]byte(password))
	if h.validUserKey(key) {
		h.key = key
		return true
	}

	userPass := h.userPassFromOwner([]byte(password))
	key = h.computeKey(userPass)
	if h.validUserKey(key) {
		h.key = key
		return true
	}
	return false
}

func padPassword(password []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, password)
	copy(padded[n:], pdfPadding)
	return padded
}

// computeKey implements Algorithm 2.
func (h *securityHandler) computeKey(password []byte) []byte {
	md := md5.New()
	md.Write(padPassword(password))
	md.Write(h.ownerHash[:32])

	var pbuf [4]byte
	binary.LittleEndian.PutUint32(pbuf[:], uint32(h.permissions))
	md.Write(pbuf[:])
	md.Write(h.fileID)
	if h.revision >= 4 && !h.encryptMetadata {
		md.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	digest := md.Sum(nil)

	if h.revision >= 3 {
		for i := 0; i < 50; i++ {
			tmp := md5.Sum(digest[:h.keyLength])
			digest = tmp[:]
		}
	}
	return digest[:h.keyLength]
}

// validUserKey checks key against /U (Algorithm 4 for R2, Algorithm 5 otherwise).
func (h *securityHandler) validUserKey(key []byte) bool {
	if h.revision == 2 {
		c, err := rc4.NewCipher(key)
		if err != nil {
			return false
		}
		computed := make([]byte, 32)
		c.XORKeyStream(computed, pdfPadding)
		return bytes.Equal(computed, h.userHash[:32])
	}

	md := md5.New()
	md.Write(pdfPadding)
	md.Write(h.fileID)
	digest := md.Sum(nil)

	xorPasses(key, digest, 0, 19)
	return bytes.Equal(digest[:16], h.userHash[:16])
}

// userPassFromOwner recovers the padded user password from an owner
// password (Algorithm 7).
func (h *securityHandler) userPassFromOwner(ownerPass []byte) []byte {
	digest := md5.Sum(padPassword(ownerPass))
	if h.revision >= 3 {
		for i := 0; i < 50; i++ {
			digest = md5.Sum(digest[:])
		}
	}
	key := digest[:h.keyLength]

	userPass := make([]byte, 32)
	copy(userPass, h.ownerHash)
	if h.revision == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(userPass, userPass)
		return userPass
	}
	xorPasses(key, userPass, 19, 0)
	return userPass
}

// xorPasses applies RC4 with key XOR i for every i from first to last,
// counting in whichever direction last lies.
func xorPasses(key, buf []byte, first, last int) {
	step := 1
	if last < first {
		step = -1
	}
	tmp := make([]byte, len(key))
	for i := first; ; i += step {
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(tmp)
		c.XORKeyStream(buf, buf)
		if i == last {
			return
		}
	}
}

// objectKey derives the key for one indirect object (Algorithm 1).
// AES-256 uses the file key for every object.
func (h *securityHandler) objectKey(num, gen int) []byte {
	if h.method == methodAESV3 {
		return h.key
	}
	buf := make([]byte, 0, len(h.key)+9)
	buf = append(buf, h.key...)
	buf = append(buf, byte(num), byte(num>>8), byte(num>>16), byte(gen), byte(gen>>8))
	if h.method == methodAESV2 {
		buf = append(buf, "sAlT"...)
	}
	sum := md5.Sum(buf)
	return sum[:min(len(h.key)+5, 16)]
}

// objectDecrypter returns the function that decrypts the strings and
// stream of one indirect object.
//
// For RC4 the cipher state carries over from one string to the next within
// the same object; gofpdf encrypts that way and the reader has to match.
func (h *securityHandler) objectDecrypter(num, gen int) func([]byte) []byte {
	if h == nil || h.key == nil || h.method == methodIdentity {
		return nil
	}

	objKey := h.objectKey(num, gen)
	if h.method == methodAESV2 || h.method == methodAESV3 {
		block, err := aes.NewCipher(objKey)
		if err != nil {
			return nil
		}
		return func(b []byte) []byte { return decryptAES(block, b) }
	}

	c, err := rc4.NewCipher(objKey)
	if err != nil {
		return nil
	}
	return func(b []byte) []byte {
		out := make([]byte, len(b))
		c.XORKeyStream(out, b)
		return out
	}
}

// decryptAES decrypts CBC data whose first block is the IV. Malformed input
// yields an empty result.
func decryptAES(block cipher.Block, b []byte) []byte {
	if len(b) < 2*aes.BlockSize || len(b)%aes.BlockSize != 0 {
		return nil
	}
	out := make([]byte, len(b)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, b[:aes.BlockSize]).CryptBlocks(out, b[aes.BlockSize:])

	pad := int(out[len(out)-1])
	if pad < 1 || pad > aes.BlockSize || pad > len(out) {
		return out
	}
	return out[:len(out)-pad]
}

// checkAES256 validates the revision 5 and 6 entries of enc.
func (h *securityHandler) checkAES256(enc Dict) error {
	if h.revision != 5 && h.revision != 6 {
		return fmt.Errorf("%w: V=5 R=%d", ErrUnsupportedEncryption, h.revision)
	}
	if h.method != methodAESV3 && h.method != methodIdentity {
		return fmt.Errorf("%w: V=5 needs AESV3 crypt filters", ErrUnsupportedEncryption)
	}
	h.ownerKey, _ = enc.GetString("OE")
	h.userKey, _ = enc.GetString("UE")
	if len(h.ownerHash) < 48 || len(h.userHash) < 48 || len(h.ownerKey) < 32 || len(h.userKey) < 32 {
		return fmt.Errorf("reader: malformed /Encrypt: /O, /U, /OE or /UE too short")
	}
	return nil
}

// authenticateAES256 checks password against /U and then /O and unwraps
// the file key from /UE or /OE (Algorithms 2.A, 11 and 12 of ISO 32000-2).
func (h *securityHandler) authenticateAES256(password string) bool {
	pw := prepPassword(password)
	u, o := h.userHash[:48], h.ownerHash[:48]

	if bytes.Equal(h.hash(pw, u[32:40], nil), u[:32]) {
		return h.unwrapKey(h.hash(pw, u[40:48], nil), h.userKey)
	}
	if bytes.Equal(h.hash(pw, o[32:40], u), o[:32]) {
		return h.unwrapKey(h.hash(pw, o[40:48], u), h.ownerKey)
	}
	return false
}

// prepPassword applies SASLprep and truncates to 127 bytes. Passwords the
// profile rejects, the empty one included, are used as given.
func prepPassword(password string) []byte {
	if p, err := precis.OpaqueString.String(password); err == nil {
		password = p
	}
	b := []byte(password)
	return b[:min(len(b), 127)]
}

// hash is SHA-256 for revision 5 and Algorithm 2.B for revision 6.
func (h *securityHandler) hash(pw, salt, udata []byte) []byte {
	sum := sha256.Sum256(slices.Concat(pw, salt, udata))
	k := sum[:]
	if h.revision == 5 {
		return k
	}

	var e []byte
	for round := 0; round < 64 || int(e[len(e)-1]) > round-32; round++ {
		k1 := bytes.Repeat(slices.Concat(pw, k, udata), 64)
		block, err := aes.NewCipher(k[:16])
		if err != nil {
			return nil
		}
		e = make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		// The first 16 bytes as a big-endian number, mod 3.
		mod := 0
		for _, b := range e[:16] {
			mod += int(b)
		}
		switch mod % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		default:
			s := sha512.Sum512(e)
			k = s[:]
		}
	}
	return k[:32]
}

// unwrapKey decrypts the file key with AES-256 in CBC mode, a zero IV and
// no padding.
func (h *securityHandler) unwrapKey(kek, wrapped []byte) bool {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return false
	}
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(key, wrapped[:32])
	h.key = key
	return true
}
