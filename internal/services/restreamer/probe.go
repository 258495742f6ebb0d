package restreamer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"polyemesis/internal/services"
)

// ProbeInput asks the server to analyse the input of a process and returns
// the discovered container and stream details.
func (c *Client) ProbeInput(ctx context.Context, id string) (ProbeInfo, error) {
	if strings.TrimSpace(id) == "" {
		return ProbeInfo{}, services.Wrap(services.ErrValidation, component, "probe input", "process id is required", nil)
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, processPath+"/"+id+"/probe", nil, &raw); err != nil {
		return ProbeInfo{}, err
	}

	f, ok := objectFields(raw)
	if !ok {
		return ProbeInfo{}, services.Wrap(services.ErrParse, component, "probe input", "probe payload is not an object", nil)
	}

	info := ProbeInfo{
		FormatName:     f.str("format_name"),
		FormatLongName: f.str("format_long_name"),
		Duration:       f.int64("duration"),
		Size:           f.uint64("size"),
		Bitrate:        int(f.int64("bitrate")),
	}
	for _, item := range f.array("streams") {
		info.Streams = append(info.Streams, parseStreamInfo(item))
	}
	return info, nil
}
