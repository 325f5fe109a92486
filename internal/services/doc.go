// Package services implements the remote and third-party collaborators of the sync engine.
//
// # Remote platform
//
// [RemoteAPI] is the mutation and search surface of the platform playlists are mirrored to.
// [YouTubeService] implements it against the ytmusicapi FastAPI proxy, forwarding the auth file
// through the X-Auth-File header. Responses are mapped onto the error taxonomy in shared:
//   - network failures, 429 and 5xx become [shared.TransientRemoteError]
//   - 401 and 403 become [shared.AuthExpiredError]
//   - any other non-2xx becomes [shared.RemoteError]
//
// # External sources
//
// [ExternalSource] fetches a playlist-like track listing from a third-party catalog:
//   - [SpotifySource] : playlists via the Web API with client-credentials OAuth2
//   - [LastFMSource] : an artist's top tracks, without durations
//   - [BandcampSource] : album pages scraped with goquery
package services
