/*
 * client.go, part of gopenff.
 *
 * Copyright 2026 The gopenff authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package qcportal wraps the client of QCFractal servers, the QCArchive, and the
//record models downloaded from them.
package qcportal

import (
	"github.com/rmera/gopenff/foreign"
)

const module = "qcportal"

//DefaultAddress is the address of the public QCArchive server.
const DefaultAddress = "https://api.qcarchive.molssi.org:443/"

var address = foreign.NewProp[string]("address")

//PortalClient is a connection to a QCFractal server.
type PortalClient struct {
	h *foreign.Handle
}

//NewPortalClient returns a client for the server at addr. An empty addr
//means DefaultAddress.
func NewPortalClient(ip *foreign.Interpreter, addr string) (*PortalClient, error) {
	var args []any
	if addr != "" {
		args = append(args, addr)
	}
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, "PortalClient", nil, args...)
	if err != nil {
		return nil, err
	}
	return &PortalClient{h: h}, nil
}

func (P *PortalClient) Handle() *foreign.Handle {
	if P == nil {
		return nil
	}
	return P.h
}

//Address returns the address of the server.
func (P *PortalClient) Address() (string, error) {
	return address.Get(P)
}

//DatasetInfo describes one dataset of a server.
type DatasetInfo struct {
	Name string `foreign:"dataset_name"`
	Type string `foreign:"dataset_type"`
}

//ListDatasets returns the datasets available in the server.
func (P *PortalClient) ListDatasets() ([]DatasetInfo, error) {
	return foreign.Call[[]DatasetInfo](P, "list_datasets")
}

func (P *PortalClient) Release() error {
	return P.h.Release()
}
