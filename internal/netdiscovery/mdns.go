// Package netdiscovery advertises the head unit's wireless-projection
// endpoint over mDNS so a phone already joined to the car's Wi-Fi
// network can find it without the user entering an IP address by hand,
// the same role MASH's pkg/discovery plays for appliance commissioning.
package netdiscovery

import (
	"fmt"
	"net"

	"github.com/enbility/zeroconf/v3"

	"github.com/openauto-hu/aahu/pkg/config"
)

const (
	// ServiceType is the mDNS service type the head unit registers under.
	// Phones running wireless projection browse for this type to locate
	// head units on the LAN.
	ServiceType = "_aawproj._tcp"

	// Domain is the mDNS domain advertisements are published into.
	Domain = "local"
)

// Advertiser owns the lifetime of the head unit's mDNS registration.
type Advertiser struct {
	server *zeroconf.Server
}

// Start registers an mDNS advertisement for the head unit described by
// cfg, reachable on cfg.Protocol.ListenPort. The advertisement carries
// the identity fields a phone's pairing UI shows the driver before
// connecting. Call Stop to withdraw it.
func Start(cfg config.Config) (*Advertiser, error) {
	instance := cfg.Identity.HeadUnitName
	if instance == "" {
		instance = "aahu"
	}
	txt := []string{
		"name=" + cfg.Identity.HeadUnitName,
		"manufacturer=" + cfg.Identity.Manufacturer,
		"model=" + cfg.Identity.Model,
		"sw_version=" + cfg.Identity.SwVersion,
	}

	var ifaces []net.Interface
	if cfg.Wifi.MDNSInterface != "" {
		iface, err := net.InterfaceByName(cfg.Wifi.MDNSInterface)
		if err != nil {
			return nil, fmt.Errorf("netdiscovery: interface %s: %w", cfg.Wifi.MDNSInterface, err)
		}
		ifaces = []net.Interface{*iface}
	}

	server, err := zeroconf.Register(instance, ServiceType, Domain, cfg.Protocol.ListenPort, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("netdiscovery: register %s: %w", instance, err)
	}
	return &Advertiser{server: server}, nil
}

// Stop withdraws the advertisement. Safe to call on a nil Advertiser.
func (a *Advertiser) Stop() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}
