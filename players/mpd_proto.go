/*
 * AudioControl is a control daemon for audio players.
 * Copyright (C) 2025 Tero Vierimaa
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package players

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

// mpdConn is one connection to the daemon. The protocol is line-oriented
// text: a command in, 'key: value' lines out, terminated by OK or ACK.
type mpdConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialMPD(addr string) (*mpdConn, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%w: connect mpd %s: %v", interfaces.ErrTransport, addr, err)
	}
	c := &mpdConn{conn: conn, reader: bufio.NewReader(conn)}
	banner, err := c.reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: read mpd banner: %v", interfaces.ErrTransport, err)
	}
	if !strings.HasPrefix(banner, "OK MPD") {
		conn.Close()
		return nil, fmt.Errorf("%w: unexpected mpd banner: %s", interfaces.ErrTransport, strings.TrimSpace(banner))
	}
	return c, nil
}

func (c *mpdConn) close() {
	if c != nil && c.conn != nil {
		c.conn.Close()
	}
}

// command sends cmd and reads the response up to OK. An ACK line becomes a
// backend error, a broken connection a transport error.
func (c *mpdConn) command(cmd string) ([]string, error) {
	if _, err := fmt.Fprintf(c.conn, "%s\n", cmd); err != nil {
		return nil, fmt.Errorf("%w: write mpd command: %v", interfaces.ErrTransport, err)
	}
	return c.readResponse()
}

func (c *mpdConn) readResponse() ([]string, error) {
	lines := []string{}
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: read mpd response: %v", interfaces.ErrTransport, err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "OK" {
			return lines, nil
		}
		if strings.HasPrefix(line, "ACK ") {
			return nil, fmt.Errorf("%w: mpd: %s", interfaces.ErrBackend, line)
		}
		lines = append(lines, line)
	}
}

// mpdQuote escapes an argument for the wire.
func mpdQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// parsePairs maps 'key: value' lines, first occurrence wins.
func parsePairs(lines []string) map[string]string {
	out := map[string]string{}
	for _, line := range lines {
		idx := strings.Index(line, ": ")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(line[:idx])
		if _, ok := out[key]; !ok {
			out[key] = line[idx+2:]
		}
	}
	return out
}

// parseSongList splits a playlistinfo response into songs. A new song starts
// at each 'file:' line.
func parseSongList(lines []string) []*models.Song {
	songs := []*models.Song{}
	var current []string
	flush := func() {
		if len(current) > 0 {
			songs = append(songs, songFromPairs(parsePairs(current)))
			current = nil
		}
	}
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "file: ") {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return songs
}

// songFromPairs builds a song from mpd tags. Returns nil for an empty record.
func songFromPairs(pairs map[string]string) *models.Song {
	if len(pairs) == 0 || pairs["file"] == "" && pairs["title"] == "" {
		return nil
	}
	song := &models.Song{
		Title:       pairs["title"],
		Artist:      pairs["artist"],
		Album:       pairs["album"],
		AlbumArtist: pairs["albumartist"],
		Genre:       pairs["genre"],
		URI:         pairs["file"],
	}
	if v := pairs["duration"]; v != "" {
		song.Duration, _ = strconv.ParseFloat(v, 64)
	} else if v := pairs["time"]; v != "" {
		seconds, _ := strconv.Atoi(v)
		song.Duration = float64(seconds)
	}
	// track and disc may come as '5' or '5/12'
	song.Track = parseTagInt(pairs["track"])
	song.Disc = parseTagInt(pairs["disc"])
	if v := pairs["date"]; len(v) >= 4 {
		song.Year, _ = strconv.Atoi(v[:4])
	}
	return song
}

func parseTagInt(v string) int {
	if idx := strings.IndexByte(v, '/'); idx >= 0 {
		v = v[:idx]
	}
	n, _ := strconv.Atoi(v)
	return n
}
