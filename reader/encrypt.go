package reader

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"fmt"
	"io"
)

// permitAll grants every permission bit for revision 4.
const permitAll int32 = -4

// WriteEncrypted writes a copy of the whole document to w encrypted with the
// standard security handler, revision 4, AES-128 for strings and streams.
// ownerPassword defaults to userPassword when empty. All permissions are
// granted.
func (d *Document) WriteEncrypted(w io.Writer, userPassword, ownerPassword string) error {
	if err := d.usable(); err != nil {
		return err
	}
	if ownerPassword == "" {
		ownerPassword = userPassword
	}

	fileID := make([]byte, 16)
	if _, err := rand.Read(fileID); err != nil {
		return fmt.Errorf("reader: generating file identifier: %w", err)
	}
	sec := newAESHandler([]byte(userPassword), []byte(ownerPassword), fileID)

	ow := &objectWriter{doc: d, renum: make(map[int]int)}
	trailer := Dict{}
	for _, key := range []Name{"Root", "Info"} {
		if d.trailer[key] == nil {
			continue
		}
		c, err := ow.copy(d.trailer[key])
		if err != nil {
			return fmt.Errorf("reader: copying /%s: %w", key, err)
		}
		trailer[key] = c
	}
	if err := ow.drain(); err != nil {
		return err
	}

	ow.objects = append(ow.objects, sec.encryptDict())
	encNum := len(ow.objects)
	id := String{Value: fileID}
	trailer["Encrypt"] = Reference{Number: encNum}
	trailer["ID"] = Array{id, id}

	return ow.write(w, trailer, func(num int, obj Object) (Object, error) {
		if num == encNum {
			return obj, nil
		}
		return encryptStrings(obj, sec.objectEncrypter(num, 0))
	})
}

// newAESHandler builds a revision 4 AES-128 handler for new output.
func newAESHandler(userPass, ownerPass, fileID []byte) *securityHandler {
	h := &securityHandler{
		version:         4,
		revision:        4,
		keyLength:       16,
		permissions:     permitAll,
		fileID:          fileID,
		encryptMetadata: true,
		method:          methodAESV2,
	}
	h.ownerHash = h.computeOwnerHash(ownerPass, userPass)
	h.key = h.computeKey(userPass)
	h.userHash = h.computeUserHash(h.key)
	return h
}

// computeOwnerHash implements Algorithm 3 for revisions 3 and 4.
func (h *securityHandler) computeOwnerHash(ownerPass, userPass []byte) []byte {
	digest := md5.Sum(padPassword(ownerPass))
	for i := 0; i < 50; i++ {
		digest = md5.Sum(digest[:])
	}
	out := padPassword(userPass)
	xorPasses(digest[:h.keyLength], out, 0, 19)
	return out
}

// computeUserHash implements Algorithm 5; the last 16 bytes are arbitrary.
func (h *securityHandler) computeUserHash(key []byte) []byte {
	md := md5.New()
	md.Write(pdfPadding)
	md.Write(h.fileID)
	digest := md.Sum(nil)
	xorPasses(key, digest, 0, 19)
	return append(digest, pdfPadding[:16]...)
}

func (h *securityHandler) encryptDict() Dict {
	return Dict{
		"Filter": Name("Standard"),
		"V":      Integer(h.version),
		"R":      Integer(h.revision),
		"Length": Integer(h.keyLength * 8),
		"CF": Dict{"StdCF": Dict{
			"AuthEvent": Name("DocOpen"),
			"CFM":       Name("AESV2"),
			"Length":    Integer(h.keyLength),
		}},
		"StmF": Name("StdCF"),
		"StrF": Name("StdCF"),
		"O":    String{Value: h.ownerHash},
		"U":    String{Value: h.userHash},
		"P":    Integer(h.permissions),
	}
}

// objectEncrypter returns the AES encryption function for one object.
func (h *securityHandler) objectEncrypter(num, gen int) func([]byte) ([]byte, error) {
	key := h.objectKey(num, gen)
	return func(b []byte) ([]byte, error) {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return encryptAES(block, b)
	}
}

// encryptAES pads b and encrypts it in CBC mode behind a random IV.
func encryptAES(block cipher.Block, b []byte) ([]byte, error) {
	pad := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, aes.BlockSize+len(b)+pad)
	if _, err := rand.Read(out[:aes.BlockSize]); err != nil {
		return nil, err
	}
	body := out[aes.BlockSize:]
	copy(body, b)
	for i := len(b); i < len(body); i++ {
		body[i] = byte(pad)
	}
	cipher.NewCBCEncrypter(block, out[:aes.BlockSize]).CryptBlocks(body, body)
	return out, nil
}

// encryptStrings returns obj with every string and stream body encrypted.
func encryptStrings(obj Object, enc func([]byte) ([]byte, error)) (Object, error) {
	switch v := obj.(type) {
	case String:
		b, err := enc(v.Value)
		return String{Value: b, IsHex: true}, err
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			c, err := encryptStrings(item, enc)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case Dict:
		out := make(Dict, len(v))
		for k, item := range v {
			c, err := encryptStrings(item, enc)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case Stream:
		c, err := encryptStrings(v.Dict, enc)
		if err != nil {
			return nil, err
		}
		data, err := enc(v.Data)
		if err != nil {
			return nil, err
		}
		dict := c.(Dict)
		dict["Length"] = Integer(len(data))
		return Stream{Dict: dict, Data: data}, nil
	}
	return obj, nil
}
