// Package discovery implements mDNS/DNS-SD discovery of remote probe servers.
//
// Probe servers advertise one service instance each:
//
// # Probe Discovery (_ccmobs-probe._tcp)
//
// Instance name format: ccmobs-<variant>-<id prefix>
// TXT records include: v (MCU variant served), pv (protocol version,
// e.g. "ccmobs/1.0") and id (server ID, a UUID).
//
// Browsing aggregates the addresses announced on several interfaces into a
// single ProbeService per instance name. Clients pick a server by variant
// and protocol compatibility (see FilterByVariant and FilterCompatible).
package discovery
