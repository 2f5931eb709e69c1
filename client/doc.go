/*
Package client is the public facade of the Meridian Go SDK.

Connect opens a Cluster, which owns one auto-scaling connection pool per
endpoint. Documents are addressed through the Cluster > Bucket > Scope >
Collection hierarchy; all handles below Cluster are cheap stateless views.

	cluster, err := client.Connect(common.DefaultClientConfig("db1:4440", "db2:4440"))
	if err != nil {
		log.Fatal(err)
	}
	defer cluster.Close()

	col := cluster.Bucket("travel").DefaultCollection()

	if _, err := col.Upsert("hotel::1", map[string]string{"name": "Sea View"}, nil); err != nil {
		log.Fatal(err)
	}

	res, err := col.Get("hotel::1")
	if err != nil {
		log.Fatal(err)
	}

Failures map onto the package's sentinel errors (ErrDocumentNotFound,
ErrDocumentExists, ErrCasMismatch, ErrTimeout, ErrConnectivity,
ErrClusterClosed), match them with errors.Is.
*/
package client
