// Package hardware probes the host for usable video encoder backends.
//
// The CPU vendor picks a priority ladder (Intel: QSV then VAAPI, AMD: VAAPI,
// ARM: V4L2M2M), each hardware entry is kept only when its device node exists
// and ffmpeg lists a matching encoder, and software encoding terminates every
// ladder. Probing never fails; on detection problems the profile degrades to
// software-only rather than blocking a cycle.
package hardware
