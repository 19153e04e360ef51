package ap

import (
	"fmt"
	"io"
	"path/filepath"
)

// WriteHostapdConf writes a hostapd configuration for c to w.
func WriteHostapdConf(w io.Writer, c Config) error {
	if _, errList := c.Validate(); len(errList) != 0 {
		return fmt.Errorf("invalid access point config: %w", errList[0])
	}
	_, err := fmt.Fprintf(w, `# generated by apnode
interface=%s
driver=nl80211
ctrl_interface=%s
ssid=%s
hw_mode=g
channel=%d
max_num_sta=%d
# open authentication
auth_algs=1
wpa=0
# pmf=%s applies to RSN networks only
ignore_broadcast_ssid=0
`,
		c.Interface,
		filepath.Clean(c.Hostapd.CtrlDir),
		c.SSID,
		c.Channel,
		c.MaxStations,
		c.PMF,
	)
	return err
}
