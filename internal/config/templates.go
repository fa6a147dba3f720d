package config

import (
	"fmt"
	"os"
)

// Template returns a commented starter config file.
func Template() string {
	return clientTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(clientTemplate), 0o600)
}

const clientTemplate = `# monitor connection
host = "localhost"
port = 41258
# reconnect listener scans port-1 down to port-port_range
port_range = 16

# client process
log_level = "info"
listen_host = ""
dial_timeout = "5s"
write_timeout = "1s"
buffer_size = 65536
metrics_addr = ""
client_type = "Internet Explorer"
agent = "Agent?"
page_title = ""
page_url = ""
`
