// Package player implements the playback state machine around a single audio decoder.
//
// # States
//
// An [Engine] moves Idle -> Loading -> Ready -> Playing <-> Paused -> Ended. Loading a new URL tears down
// the current decoder and its clock sampler before the replacement is opened; a load overtaken by a newer
// one is closed and discarded. End of stream in [Single] mode seeks to zero and keeps playing; otherwise
// the engine enters Ended and calls OnEnded so the owner can pick the next track with [NextIndex].
//
// # Decoders
//
// [Decoder] and [Opener] abstract the audio backend. [BeepOpener] decodes mp3, flac, wav and ogg with
// gopxl/beep and plays through its speaker; builds without audio support return an opener that always
// fails with [shared.ErrPlayback].
package player
