// Package cipher holds the byte transforms behind the platform request
// schemes.
//
// Every transform is an Operation registered by name at init, so callers can
// look one up directly or chain several through a Pipeline:
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "aes_ecb_encrypt", Parameters: map[string]interface{}{"key": key}},
//	        {Name: "hex_upper_encode"},
//	    },
//	    Reversible: true,
//	}
//	out, err := pipeline.Execute(ctx, plaintext)
//
// Registered names:
//
//	base64_encode, base64_decode
//	url_encode, url_decode
//	hex_encode, hex_upper_encode, hex_decode
//	md5_hash, sha1_hash, sha256_hash, sha512_hash
//	aes_cbc_encrypt, aes_cbc_decrypt (params: key, iv)
//	aes_ecb_encrypt, aes_ecb_decrypt (params: key)
//	rsa_raw_encrypt (params: modulus, exponent, width)
//
// The registry is written only during init and is safe for concurrent reads.
// Random helpers read from crypto/rand unless handed another io.Reader.
package cipher
