// Package cover extracts embedded album art from audio files.
//
// # Range Reads
//
// The [Extractor] fetches the first [ProbeSize] bytes with an HTTP Range request. When they start with an
// ID3v2 header the synchsafe tag size is decoded and, if the tag is larger than the probe, the whole tag is
// requested in a second range read. Without a header the body is read in full up to [MaxFullRead].
//
// # Frame Scan
//
// [FindPicture] walks ID3v2.3/2.4 frames and decodes the first APIC frame. Anything it cannot handle
// (ID3v2.2, FLAC pictures, MP4 atoms) goes through [github.com/dhowden/tag].
//
// # Handles
//
// Extracted images are held as [Handle] values registered in a [Store] and served by id. The [Slot] holds the
// single displayed cover: every request takes a [Ticket], and only the latest ticket may install, so a slow
// extraction for a previous track never replaces the current cover. Replaced and stale handles are released.
package cover
