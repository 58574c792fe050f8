package nfse

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
)

// Envelope de transporte: a Sefin recebe o XML assinado comprimido com GZip e
// codificado em Base64 padrão. DecodeDecompress(CompressEncode(x)) == x para
// qualquer texto UTF-8; nenhuma outra transformação é aplicada.

// CompressEncode comprime com GZip e codifica em Base64.
func CompressEncode(data string) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(data)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDecompress decodifica Base64 e descomprime GZip. Tokens malformados
// em qualquer das duas camadas devolvem DecodingError.
func DecodeDecompress(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", &DecodingError{Err: err}
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", &DecodingError{Err: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", &DecodingError{Err: err}
	}
	return string(out), nil
}
