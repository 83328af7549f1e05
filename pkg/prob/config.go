package prob

type BrowserOptions struct {
	Headless        bool
	PageWaitSeconds int

	WorkingDirectory string
	KeepTempDir      bool
	TempDirPrefix    string
}

type HttpOptions struct {
	Samples         int
	CaptureBody     bool
	IgnoreRedirects bool
}

type RunOptions struct {
	Target string

	Browser BrowserOptions
	Http    HttpOptions
}
