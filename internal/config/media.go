package config

// MediaConfig points the uploader at an S3-compatible media host.  PublicURL
// is the base that, joined with an object key, yields the URI stored on the
// user record; it defaults to Endpoint/Bucket.
type MediaConfig struct {
    Endpoint  string
    Region    string
    Bucket    string
    AccessKey string
    SecretKey string
    PublicURL string
}

// LoadMediaConfig reads MEDIA_* variables.
func LoadMediaConfig() MediaConfig {
    c := MediaConfig{
        Endpoint:  envStr("MEDIA_ENDPOINT", "http://127.0.0.1:9000"),
        Region:    envStr("MEDIA_REGION", "us-east-1"),
        Bucket:    envStr("MEDIA_BUCKET", "accounts"),
        AccessKey: envStr("MEDIA_ACCESS_KEY", ""),
        SecretKey: envStr("MEDIA_SECRET_KEY", ""),
        PublicURL: envStr("MEDIA_PUBLIC_URL", ""),
    }
    if c.PublicURL == "" {
        c.PublicURL = trimSlash(c.Endpoint) + "/" + c.Bucket
    }
    return c
}

func trimSlash(s string) string {
    for len(s) > 0 && s[len(s)-1] == '/' {
        s = s[:len(s)-1]
    }
    return s
}
