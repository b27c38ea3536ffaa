package scheme

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
)

var weapiBodyRe = regexp.MustCompile(`^params=[A-Za-z0-9%]+&encSecKey=[0-9a-f]{256}$`)

// sequentialSource yields 0, 1, 2, ... which maps the secret key onto
// "abcdefghijklmnop".
func sequentialSource() *bytes.Reader {
	b := make([]byte, secretKeyLen)
	for i := range b {
		b[i] = byte(i)
	}
	return bytes.NewReader(b)
}

func TestWeAPIGoldenVector(t *testing.T) {
	engine := NewEngine(WithRandom(sequentialSource()))

	body, err := engine.WeAPI(context.Background(), Params{"id": "123", "csrf_token": ""})
	if err != nil {
		t.Fatalf("WeAPI: %v", err)
	}
	want := "params=Xq7VamFhKH1OmZhJfUWqvsVSOKzbq39X%2BI3%2F6bsB5NchZqNLt0DnHtcNcMtwNykT" +
		"&encSecKey=d15a1683c992095d0c234c19966605c5c5964911268bbeda8cb8d08d834913e59d53b32358903a121b5fca784c1f5ae44951fd02524df58ecc98e52cc7cf8689b42c2e93ddf05b0592512d87f5960467e2f086c018849d76014d323500e30f13ef4cafbb0cf5a66731a3f1776c75ca35d0062dac70a3e33245afabcf47938487"
	if body != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", body, want)
	}

	params, err := engine.DecodeWeAPI(context.Background(), body, "abcdefghijklmnop")
	if err != nil {
		t.Fatalf("DecodeWeAPI: %v", err)
	}
	if params["id"] != "123" || len(params) != 2 {
		t.Errorf("unexpected params %v", params)
	}
	if _, ok := params["csrf_token"]; !ok {
		t.Error("csrf_token lost in roundtrip")
	}

	if _, err := engine.DecodeWeAPI(context.Background(), body, "ponmlkjihgfedcba"); !errors.Is(err, ErrMalformedBody) {
		t.Errorf("expected ErrMalformedBody for wrong secret, got %v", err)
	}
}

func TestWeAPIRandomSecret(t *testing.T) {
	var drawn bytes.Buffer
	engine := NewEngine(WithRandom(teeSource(&drawn)))

	body, err := engine.WeAPI(context.Background(), Params{"s": "a&b=c", "csrf_token": "tok"})
	if err != nil {
		t.Fatalf("WeAPI: %v", err)
	}
	if !weapiBodyRe.MatchString(body) {
		t.Fatalf("body does not match weapi shape: %s", body)
	}

	// 0xfe is rejected, so the secret spans 17 draws.
	if drawn.Len() != secretKeyLen+1 {
		t.Fatalf("expected %d draws, got %d", secretKeyLen+1, drawn.Len())
	}
	var secret []byte
	for _, b := range drawn.Bytes() {
		if b < 248 {
			secret = append(secret, base62[int(b)%len(base62)])
		}
	}
	params, err := engine.DecodeWeAPI(context.Background(), body, string(secret))
	if err != nil {
		t.Fatalf("DecodeWeAPI: %v", err)
	}
	if params["s"] != "a&b=c" || params["csrf_token"] != "tok" {
		t.Errorf("unexpected params %v", params)
	}
}

func TestWeAPIShortRandomSource(t *testing.T) {
	engine := NewEngine(WithRandom(bytes.NewReader([]byte{1, 2, 3})))
	if _, err := engine.WeAPI(context.Background(), Params{}); err == nil {
		t.Fatal("expected error when the random source runs dry")
	}
}

func TestLinuxAPIGoldenVector(t *testing.T) {
	body, err := EncryptLinuxAPI(context.Background(), Envelope{
		Method: "POST",
		URL:    "https://music.163.com/api/song/detail",
		Params: Params{"id": "123"},
	})
	if err != nil {
		t.Fatalf("LinuxAPI: %v", err)
	}
	want := "eparams=A0D9583F4C5FF68DE851D2893A49DE98FAFB24399F27B4F7E74C64B6FC49A965CFA972FA5EA3D6247CD6247C8198CB8724902E133AF06ABB1602F129E968462D90A73302BE4BA6EC56EC9C05B422F1162116CEBE8A3967B04D708F27F5EC3145"
	if body != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", body, want)
	}

	env, err := DecodeLinuxAPI(context.Background(), body)
	if err != nil {
		t.Fatalf("DecodeLinuxAPI: %v", err)
	}
	if env.Method != "POST" || env.URL != "https://music.163.com/api/song/detail" || env.Params["id"] != "123" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestLinuxAPINilParams(t *testing.T) {
	body, err := EncryptLinuxAPI(context.Background(), Envelope{Method: "POST", URL: "https://music.163.com/api/x"})
	if err != nil {
		t.Fatalf("LinuxAPI: %v", err)
	}
	env, err := DecodeLinuxAPI(context.Background(), body)
	if err != nil {
		t.Fatalf("DecodeLinuxAPI: %v", err)
	}
	if env.Params == nil || len(env.Params) != 0 {
		t.Errorf("expected empty params object, got %v", env.Params)
	}
}

func TestEAPIGoldenVector(t *testing.T) {
	path := "/api/song/enhance/player/url"
	body, err := EncryptEAPI(context.Background(), path, Params{"ids": "[1]", "br": "999000"})
	if err != nil {
		t.Fatalf("EAPI: %v", err)
	}
	want := "params=FA90B329E9614F79E79598F37DC2EDB430F8378D2A2796338F0BFDEAEF824A2219F77E9F1A8342E17AEDFE9CB0B8F42340D43064D84774696E1FC47B5D63EBA38D81354123E4CAE96F7C949F3FB07977FEBBA9014C7E3B5D87AA30ACA7745543D5DC02B27BBBB04AFA51315157D9705ACA3A66B3F11E51EFD0F5AD0CE6A32783"
	if body != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", body, want)
	}

	gotPath, params, err := DecodeEAPI(context.Background(), body)
	if err != nil {
		t.Fatalf("DecodeEAPI: %v", err)
	}
	if gotPath != path || params["ids"] != "[1]" || params["br"] != "999000" {
		t.Errorf("unexpected decode: %s %v", gotPath, params)
	}

	if _, err := EncryptEAPI(context.Background(), "", Params{}); err == nil {
		t.Error("expected error for empty context path")
	}
}

func TestDecodeMalformed(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		fn   func() error
	}{
		{"linux prefix", func() error { _, err := DecodeLinuxAPI(ctx, "params=00"); return err }},
		{"linux hex", func() error { _, err := DecodeLinuxAPI(ctx, "eparams=XYZ"); return err }},
		{"eapi prefix", func() error { _, _, err := DecodeEAPI(ctx, "eparams=00"); return err }},
		{"eapi block", func() error { _, _, err := DecodeEAPI(ctx, "params=00FF"); return err }},
		{"weapi fields", func() error { _, err := DecodeWeAPI(ctx, "params=abc", "abcdefghijklmnop"); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !errors.Is(err, ErrMalformedBody) {
				t.Errorf("expected ErrMalformedBody, got %v", err)
			}
		})
	}
}

func TestConcurrentWeAPI(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := EncryptWeAPI(context.Background(), Params{"id": "1", "csrf_token": ""})
			if err != nil {
				errs <- err
				return
			}
			if !weapiBodyRe.MatchString(body) {
				errs <- errors.New("bad body shape: " + body)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type teeReader struct {
	src  *bytes.Reader
	sink *bytes.Buffer
}

func (r teeReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	r.sink.Write(p[:n])
	return n, err
}

// teeSource hands out fixed pseudo-random bytes and records what was drawn.
func teeSource(sink *bytes.Buffer) teeReader {
	return teeReader{src: bytes.NewReader([]byte("\x9a\x11\xfe\x03\x7c\x42\xd0\x88\x19\x2b\xee\x61\x05\xc4\x37\xab\x2e\x90")), sink: sink}
}
