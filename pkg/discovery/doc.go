// Package discovery advertises and finds bus bridges over mDNS/DNS-SD.
//
// A running SoC model announces its bridge as
//
//	<ident>-<id>._etpubridge._tcp.local.
//
// with TXT records:
//
//	id=<build uuid>
//	ident=<SoC identification string>
//	clk=<sys clock in Hz>
//	regions=<name@origin+length,...>
//
// Hosts browse for the service type and connect the bridge client to the
// advertised host and port.
package discovery
