package endpoint

import (
	"fmt"
	"strings"

	"github.com/RowanDark/ncmsign/internal/cipher"
	"github.com/RowanDark/ncmsign/internal/scheme"
	"github.com/RowanDark/ncmsign/internal/useragent"
)

const (
	webBase       = "https://music.163.com"
	interfaceBase = "https://interface.music.163.com"
)

func fixed(url string) func(Query) (Target, error) {
	return func(Query) (Target, error) {
		return Target{URL: url, Params: scheme.Params{}}, nil
	}
}

func byID(url, key string) func(Query) (Target, error) {
	return func(q Query) (Target, error) {
		id, err := q.Require("id")
		if err != nil {
			return Target{}, err
		}
		return Target{URL: url, Params: scheme.Params{key: id}}, nil
	}
}

func paged(url, defLimit string) func(Query) (Target, error) {
	return func(q Query) (Target, error) {
		return Target{URL: url, Params: scheme.Params{
			"limit":  q.Value("limit", defLimit),
			"offset": q.Value("offset", "0"),
			"total":  "true",
		}}, nil
	}
}

// idList turns "1, 2,3" into the bracketed list the platform expects.
func idList(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

var builtin = []*Endpoint{
	{
		Route:       "/album",
		Description: "Album tracks and metadata",
		Scheme:      scheme.WeAPI,
		Build: func(q Query) (Target, error) {
			id, err := q.Require("id")
			if err != nil {
				return Target{}, err
			}
			return Target{URL: webBase + "/weapi/v1/album/" + id}, nil
		},
	},
	{
		Route:       "/album/detail/dynamic",
		Description: "Album counters (comments, shares, subscription state)",
		Scheme:      scheme.WeAPI,
		Build:       byID(webBase+"/api/album/detail/dynamic", "id"),
	},
	{
		Route:       "/album/newest",
		Description: "Newest albums",
		Scheme:      scheme.WeAPI,
		Build:       fixed(webBase + "/api/discovery/newAlbum"),
	},
	{
		Route:       "/album/sublist",
		Description: "Albums the account subscribed to",
		Scheme:      scheme.WeAPI,
		Build:       paged(webBase+"/weapi/album/sublist", "25"),
	},
	{
		Route:       "/artist/album",
		Description: "Albums by artist",
		Scheme:      scheme.WeAPI,
		Build: func(q Query) (Target, error) {
			id, err := q.Require("id")
			if err != nil {
				return Target{}, err
			}
			t, _ := paged(webBase+"/weapi/artist/albums/"+id, "30")(q)
			return t, nil
		},
	},
	{
		Route:       "/artist/desc",
		Description: "Artist biography",
		Scheme:      scheme.WeAPI,
		Build:       byID(webBase+"/weapi/artist/introduction", "id"),
	},
	{
		Route:       "/banner",
		Description: "Home page banners for a client type (0 pc, 1 android, 2 iphone, 3 ipad)",
		Scheme:      scheme.LinuxAPI,
		Build: func(q Query) (Target, error) {
			types := []string{"pc", "android", "iphone", "ipad"}
			idx := q.Value("type", "0")
			for i, name := range types {
				if idx == fmt.Sprint(i) {
					return Target{URL: webBase + "/api/v2/banner/get", Params: scheme.Params{"clientType": name}}, nil
				}
			}
			return Target{}, fmt.Errorf("banner type %q out of range", idx)
		},
	},
	{
		Route:       "/login/cellphone",
		Description: "Log in with phone number and password",
		Scheme:      scheme.WeAPI,
		Sensitive:   []string{"phone", "password"},
		Build: func(q Query) (Target, error) {
			phone, err := q.Require("phone")
			if err != nil {
				return Target{}, err
			}
			password, err := q.Require("password")
			if err != nil {
				return Target{}, err
			}
			hashed, err := cipher.HashEncrypt(password, "md5", "hex")
			if err != nil {
				return Target{}, err
			}
			return Target{URL: webBase + "/weapi/login/cellphone", Params: scheme.Params{
				"phone":         phone,
				"countrycode":   q.Value("countrycode", "86"),
				"password":      hashed,
				"rememberLogin": "true",
			}}, nil
		},
	},
	{
		Route:       "/login/status",
		Description: "Current account for the cookie",
		Scheme:      scheme.WeAPI,
		Build:       fixed(webBase + "/weapi/w/nuser/account/get"),
	},
	{
		Route:       "/logout",
		Description: "End the session",
		Scheme:      scheme.WeAPI,
		UserAgent:   useragent.Desktop,
		Build:       fixed(webBase + "/weapi/logout"),
	},
	{
		Route:       "/lyric",
		Description: "Lyrics and translations",
		Scheme:      scheme.LinuxAPI,
		Build:       byID(webBase+"/weapi/song/lyric?lv=-1&kv=-1&tv=-1", "id"),
	},
	{
		Route:       "/personal_fm",
		Description: "Personal radio queue",
		Scheme:      scheme.WeAPI,
		Build:       fixed(webBase + "/weapi/v1/radio/get"),
	},
	{
		Route:        "/playlist/detail",
		Description:  "Playlist tracks",
		Scheme:       scheme.LinuxAPI,
		CookieSuffix: ";os=pc;",
		Build: func(q Query) (Target, error) {
			id, err := q.Require("id")
			if err != nil {
				return Target{}, err
			}
			return Target{URL: webBase + "/api/v6/playlist/detail", Params: scheme.Params{
				"id": id,
				"n":  "100000",
				"s":  q.Value("s", "8"),
			}}, nil
		},
	},
	{
		Route:       "/search",
		Description: "Search by keywords",
		Scheme:      scheme.WeAPI,
		Build: func(q Query) (Target, error) {
			return Target{URL: webBase + "/weapi/search/get", Params: scheme.Params{
				"s":      q.Value("keywords", ""),
				"type":   q.Value("type", "1"),
				"limit":  q.Value("limit", "30"),
				"offset": q.Value("offset", "0"),
			}}, nil
		},
	},
	{
		Route:       "/song/detail",
		Description: "Track metadata for comma-separated ids",
		Scheme:      scheme.WeAPI,
		Build: func(q Query) (Target, error) {
			raw, err := q.Require("ids")
			if err != nil {
				return Target{}, err
			}
			ids := idList(raw)
			if len(ids) == 0 {
				return Target{}, fmt.Errorf("ids: no ids in %q", raw)
			}
			c := make([]string, len(ids))
			for i, id := range ids {
				c[i] = `{"id":` + id + `}`
			}
			return Target{URL: webBase + "/weapi/v3/song/detail", Params: scheme.Params{
				"c":   "[" + strings.Join(c, ",") + "]",
				"ids": "[" + strings.Join(ids, ",") + "]",
			}}, nil
		},
	},
	{
		Route:        "/song/url",
		Description:  "Stream URLs for tracks",
		Scheme:       scheme.LinuxAPI,
		CookieSuffix: ";os=pc;",
		Build: func(q Query) (Target, error) {
			id, err := q.Require("id")
			if err != nil {
				return Target{}, err
			}
			return Target{URL: webBase + "/api/song/enhance/player/url", Params: scheme.Params{
				"ids": "[" + strings.Join(idList(id), ",") + "]",
				"br":  q.Value("br", "999000"),
			}}, nil
		},
	},
	{
		Route:        "/song/url/v1",
		Description:  "Stream URLs by quality level (eapi)",
		Scheme:       scheme.EAPI,
		CookieSuffix: ";os=android;appver=8.10.05;",
		Build: func(q Query) (Target, error) {
			id, err := q.Require("id")
			if err != nil {
				return Target{}, err
			}
			level := q.Value("level", "standard")
			params := scheme.Params{
				"ids":        "[" + strings.Join(idList(id), ",") + "]",
				"encodeType": "flac",
				"level":      level,
			}
			if level == "sky" {
				params["immerseType"] = "c51"
			}
			return Target{URL: interfaceBase + "/eapi/song/enhance/player/url/v1", Params: params}, nil
		},
	},
	{
		Route:       "/user/account",
		Description: "Account profile",
		Scheme:      scheme.WeAPI,
		Build:       fixed(webBase + "/api/nuser/account/get"),
	},
}

func init() {
	for _, ep := range builtin {
		if err := Register(ep); err != nil {
			panic(err)
		}
	}
}
