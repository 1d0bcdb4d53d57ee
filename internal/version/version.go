package version

var (
	AppName    = "soundkeep"
	AppVersion = "0.3.0"
)
